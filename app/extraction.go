// Statement extraction via Gemini on Vertex AI. The model is asked for a
// strict JSON schema, but its output is untrusted: responses are sanitized
// and parsed best-effort, and only service failures surface as errors.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/gpalras/bank-converter-pt/app/config"
	"github.com/gpalras/bank-converter-pt/app/models"
)

const extractTimeout = 2 * time.Minute

// Portuguese prompts are the extraction service's input language, preserved
// verbatim from the product. They are domain instructions, not UI strings.
const extractorSystemPrompt = "És um assistente especializado em análise de extratos bancários portugueses. Retorna APENAS JSON válido, sem texto adicional."

const extractorPromptTemplate = `
Analise este extrato bancário do banco %s (Portugal) e extraia TODAS as transações visíveis.

INSTRUÇÕES IMPORTANTES:
1. Extraia TODAS as transações que encontrar no documento
2. Para cada transação, identifique: data, descrição completa, valor (débito ou crédito)
3. Identifique o saldo inicial e final se visível
4. Se possível, identifique categorias fiscais portuguesas (IRS, Segurança Social)

Retorne APENAS um objeto JSON válido, sem texto adicional, neste formato exato:
{
  "banco": "%s",
  "conta": "número da conta se visível",
  "periodo": "DD/MM/YYYY - DD/MM/YYYY",
  "saldo_inicial": 0.00,
  "saldo_final": 0.00,
  "transacoes": [
    {
      "data": "DD/MM/YYYY",
      "descricao": "descrição completa da transação",
      "valor": 0.00,
      "tipo": "débito",
      "categoria_fiscal": null
    },
    {
      "data": "DD/MM/YYYY",
      "descricao": "descrição completa",
      "valor": 0.00,
      "tipo": "crédito",
      "categoria_fiscal": null
    }
  ]
}

IMPORTANTE: Retorne APENAS o JSON, sem explicações ou texto adicional.
`

const (
	fallbackPeriod = "Não identificado"
	fallbackError  = "Erro ao processar resposta da IA. Por favor, tente novamente."
)

// StatementExtractor turns an uploaded PDF into structured statement data.
type StatementExtractor interface {
	ExtractStatement(ctx context.Context, pdf []byte, bankName string) (models.StatementData, error)
}

var extractor StatementExtractor

// MustInitExtractor wires the Gemini-backed extractor from config.
func MustInitExtractor() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for extractor: %v", err)
	}
	ex, err := NewGeminiExtractor(context.Background(), cfg.Gemini)
	if err != nil {
		log.Fatalf("failed to init extractor: %v", err)
	}
	extractor = ex
}

// GeminiExtractor calls a Gemini model on Vertex AI with the statement PDF
// attached and the extraction prompt as text.
type GeminiExtractor struct {
	model  *genai.GenerativeModel
	client *genai.Client
}

// NewGeminiExtractor builds the Vertex AI client and configures the model.
func NewGeminiExtractor(ctx context.Context, cfg config.GeminiConfig) (*GeminiExtractor, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID must be set")
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extractorSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &GeminiExtractor{model: model, client: client}, nil
}

// Close releases the underlying Vertex AI client.
func (g *GeminiExtractor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// ExtractStatement sends the PDF and prompt to the model and parses the
// response. Service/transport failures wrap ErrExtraction; malformed model
// output never errors, it degrades to the fallback result.
func (g *GeminiExtractor) ExtractStatement(ctx context.Context, pdf []byte, bankName string) (models.StatementData, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	prompt := fmt.Sprintf(extractorPromptTemplate, bankName, bankName)

	resp, err := g.model.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdf},
		genai.Text(prompt),
	)
	if err != nil {
		return models.StatementData{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	text, ok := responseText(resp)
	if !ok {
		return models.StatementData{}, fmt.Errorf("%w: model returned no text candidates", ErrExtraction)
	}

	return ParseStatementResponse(text, bankName), nil
}

func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

// ParseStatementResponse sanitizes free-form model output and parses it into
// statement data. Unparsable text yields a fallback result with an error
// message for the user, never a Go error.
func ParseStatementResponse(text, bankName string) models.StatementData {
	cleaned := stripCodeFence(strings.TrimSpace(text))

	// Tolerate leading/trailing prose around the JSON object.
	if start := strings.Index(cleaned, "{"); start != -1 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var data models.StatementData
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		log.Printf("statement parse failed bank=%s err=%v", bankName, err)
		return models.StatementData{
			Bank:         bankName,
			Period:       fallbackPeriod,
			Transactions: []models.StatementTransaction{},
			Error:        fallbackError,
		}
	}
	if data.Transactions == nil {
		data.Transactions = []models.StatementTransaction{}
	}
	return data
}

// stripCodeFence returns the content of the first fenced code block
// (```json or generic) if one is present, else the input unchanged.
func stripCodeFence(text string) string {
	for _, marker := range []string{"```json", "```"} {
		idx := strings.Index(text, marker)
		if idx == -1 {
			continue
		}
		rest := text[idx+len(marker):]
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return text
}
