package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/bedrock"
	"github.com/kitabmazhab/kitab-agent/internal/conversation"
	"github.com/kitabmazhab/kitab-agent/internal/dispatch"
	"github.com/kitabmazhab/kitab-agent/internal/index"
	"github.com/kitabmazhab/kitab-agent/internal/ingestion"
	"github.com/kitabmazhab/kitab-agent/internal/intent"
)

// LLMClient generates the final answer from the assembled context.
type LLMClient interface {
	InvokeModel(ctx context.Context, request bedrock.ClaudeRequest) (*bedrock.ClaudeResponse, error)
}

const systemPrompt = `Anda adalah seorang ulama virtual yang ahli dalam empat mazhab fiqih Islam (Hanafi, Maliki, Syafi'i, dan Hanbali).

PERAN ANDA:
- Menjawab pertanyaan tentang fiqih dan kitab-kitab imam mazhab dengan akurat
- Menjelaskan perbedaan pendapat antar mazhab dengan adil dan objektif
- Memberikan dalil dan referensi dari kitab-kitab mu'tabar
- Menggunakan bahasa yang mudah dipahami namun tetap ilmiah

PRINSIP DALAM MENJAWAB:
1. Selalu berdasarkan sumber yang valid dari konteks yang diberikan
2. Jika ada perbedaan pendapat, sebutkan semua pendapat secara adil
3. Jangan membuat fatwa atau hukum baru, hanya menjelaskan pendapat yang sudah ada
4. Jika tidak yakin atau informasi tidak ada dalam konteks, katakan dengan jujur
5. Gunakan istilah Arab dengan transliterasi dan terjemahan

FORMAT JAWABAN:
- Mulai dengan jawaban langsung
- Berikan penjelasan detail jika diperlukan
- Sebutkan sumber/referensi mazhab
- Akhiri dengan catatan penting jika ada

BAHASA:
- Gunakan Bahasa Indonesia yang baik
- Sertakan istilah Arab asli dengan transliterasi
- Jelaskan istilah teknis untuk pemula`

const greetingReply = `Assalamu'alaikum warahmatullahi wabarakatuh

Saya adalah *Asisten Kitab Imam Mazhab*, siap membantu Anda mempelajari empat mazhab fiqih Islam:

- *Mazhab Hanafi* - Imam Abu Hanifah
- *Mazhab Maliki* - Imam Malik
- *Mazhab Syafi'i* - Imam Syafi'i
- *Mazhab Hanbali* - Imam Ahmad bin Hanbal

*Yang bisa saya bantu:*
- Biografi dan sejarah para imam
- Hukum fiqih (thaharah, shalat, zakat, puasa, haji, nikah, dll)
- Kitab-kitab rujukan setiap mazhab
- Perbandingan pendapat antar mazhab
- Metodologi istinbath hukum

Silakan ajukan pertanyaan Anda!`

const helpReply = `*PANDUAN PENGGUNAAN*

*Contoh pertanyaan:*

1. *Biografi Imam*
   "Siapa Imam Syafi'i?"
   "Ceritakan tentang Imam Abu Hanifah"

2. *Hukum Fiqih*
   "Bagaimana cara wudhu menurut mazhab Syafi'i?"
   "Apa yang membatalkan puasa?"

3. *Perbandingan Mazhab*
   "Apa perbedaan posisi tangan shalat antar mazhab?"

4. *Kitab Rujukan*
   "Kitab apa saja dalam mazhab Maliki?"

5. *Metodologi*
   "Apa ciri khas mazhab Hanafi?"

*Tips:*
- Sebutkan nama mazhab untuk jawaban spesifik
- Gunakan kata "bandingkan" untuk melihat perbedaan
- Ketik "reset" untuk memulai percakapan baru`

const resetReply = "Percakapan telah direset.\n\nSilakan ajukan pertanyaan baru tentang kitab imam mazhab."

const llmFailureReply = "Maaf, terjadi kesalahan dalam memproses pertanyaan Anda. Silakan coba beberapa saat lagi."

var (
	greetingCommands = []string{"assalamualaikum", "salam", "halo", "hai", "hi", "hello", "start", "/start"}
	resetCommands    = []string{"reset", "/reset", "ulang", "mulai ulang"}
	helpCommands     = []string{"help", "/help", "menu", "/menu", "?", "panduan", "bantuan"}
)

// Reply is the outcome of one handled message.
type Reply struct {
	Answer    string
	ToolsUsed []string
}

// Service runs the full message flow: command handling, intent routing,
// context assembly, answer generation and history bookkeeping.
type Service struct {
	llm           LLMClient
	modelID       string
	router        *intent.Router
	dispatcher    *dispatch.Dispatcher
	conversations conversation.Store
	index         *index.Index
	pipeline      *ingestion.Pipeline
	knowledgePath string
}

func NewService(
	llm LLMClient,
	modelID string,
	router *intent.Router,
	dispatcher *dispatch.Dispatcher,
	conversations conversation.Store,
	ix *index.Index,
	pipeline *ingestion.Pipeline,
	knowledgePath string,
) *Service {
	return &Service{
		llm:           llm,
		modelID:       modelID,
		router:        router,
		dispatcher:    dispatcher,
		conversations: conversations,
		index:         ix,
		pipeline:      pipeline,
		knowledgePath: knowledgePath,
	}
}

// HandleMessage processes one user message end to end. Command messages
// (greeting, help, reset) short-circuit before any retrieval; LLM
// failures degrade to an apology reply rather than an error.
func (s *Service) HandleMessage(ctx context.Context, userID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	lower := strings.ToLower(message)

	if isCommand(lower, greetingCommands) {
		return Reply{Answer: greetingReply}, nil
	}
	if isCommand(lower, helpCommands) {
		return Reply{Answer: helpReply}, nil
	}
	if isCommand(lower, resetCommands) {
		if err := s.conversations.Clear(ctx, userID); err != nil {
			return Reply{}, fmt.Errorf("failed to reset conversation: %w", err)
		}
		return Reply{Answer: resetReply}, nil
	}

	history, err := s.conversations.GetHistory(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load history, continuing without it")
		history = nil
	}

	it := s.router.Route(message)
	log.Info().
		Str("user_id", userID).
		Str("primary_tool", string(it.PrimaryTool)).
		Msg("Intent detected")

	assembled, toolsUsed := s.dispatcher.AssembleContext(ctx, message, it)

	s.saveMessage(ctx, userID, "user", message)

	answer := s.generate(ctx, message, assembled, history)
	s.saveMessage(ctx, userID, "assistant", answer)

	tools := make([]string, 0, len(toolsUsed))
	for _, tool := range toolsUsed {
		tools = append(tools, string(tool))
	}

	return Reply{Answer: answer, ToolsUsed: tools}, nil
}

// Health reports index and conversation counts for the health endpoint.
func (s *Service) Health(ctx context.Context) HealthResponse {
	status := "ok"
	chunkCount, err := s.index.Count(ctx)
	if err != nil {
		status = "degraded"
	}

	activeConversations, err := s.conversations.ActiveCount(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count conversations")
	}

	return HealthResponse{
		Status:              status,
		Version:             "1.0.0",
		IndexedChunks:       chunkCount,
		ActiveConversations: activeConversations,
	}
}

// Reload re-ingests the configured knowledge base file.
func (s *Service) Reload(ctx context.Context) (int, error) {
	return s.pipeline.IngestFile(ctx, s.knowledgePath)
}

func (s *Service) generate(ctx context.Context, message, assembled string, history []conversation.Message) string {
	response, err := s.llm.InvokeModel(ctx, bedrock.ClaudeRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(message, assembled, history),
		MaxTokens:   2000,
		Temperature: 0.7,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to invoke model")
		return llmFailureReply
	}
	return response.Content
}

func (s *Service) saveMessage(ctx context.Context, userID, role, content string) {
	msg := conversation.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	if err := s.conversations.AddMessage(ctx, userID, msg); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("role", role).Msg("Failed to save message")
	}
}

func buildPrompt(message, assembled string, history []conversation.Message) string {
	historySection := ""
	if len(history) > 0 {
		// Last 3 exchanges.
		maxMessages := 6
		if len(history) > maxMessages {
			history = history[len(history)-maxMessages:]
		}

		var hb strings.Builder
		hb.WriteString("RIWAYAT PERCAKAPAN:\n")
		for _, msg := range history {
			hb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
		}
		historySection = hb.String() + "\n"
	}

	return fmt.Sprintf(`%sKONTEKS DARI DATABASE KITAB MAZHAB:
%s

PERTANYAAN PENGGUNA:
%s

Berikan jawaban yang informatif berdasarkan konteks di atas. Jika informasi tidak tersedia dalam konteks, katakan dengan jujur.`,
		historySection, assembled, message)
}

func isCommand(message string, commands []string) bool {
	for _, command := range commands {
		if message == command {
			return true
		}
	}
	return false
}
