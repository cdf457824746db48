package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"

	"vellum/backend/internal/domain"
	"vellum/backend/internal/export"
	"vellum/backend/internal/xid"
)

const DefaultModel = "gpt-4o-mini"

var ErrNoValidInsights = errors.New("generator returned no usable insights")

type Generator interface {
	Generate(ctx context.Context, summary Summary) ([]domain.Insight, error)
}

// generatedInsight is the shape the model must answer with.
type generatedInsight struct {
	Category       string   `json:"category" jsonschema:"enum=campaigns,enum=products,enum=clients,enum=growth,enum=retention"`
	Title          string   `json:"title" jsonschema:"description=Short title, at most 60 characters"`
	Description    string   `json:"description" jsonschema:"description=Problem or opportunity found, at most 200 characters"`
	Priority       string   `json:"priority" jsonschema:"enum=high,enum=medium,enum=low"`
	ActionType     string   `json:"action_type" jsonschema:"enum=email,enum=whatsapp,enum=coupon,enum=promotion,enum=strategy"`
	Implementation []string `json:"implementation" jsonschema:"description=Three concrete implementation steps"`
	ExpectedImpact string   `json:"expected_impact"`
	Metrics        []string `json:"metrics" jsonschema:"description=Three metrics to track"`
}

type generatedEnvelope struct {
	Insights []generatedInsight `json:"insights"`
}

type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey string, model string) *OpenAIGenerator {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{client: &client, model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, summary Summary) ([]domain.Insight, error) {
	schemaMap, err := envelopeSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(g.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(Prompt(summary)),
		},
		Temperature: param.NewOpt(0.7),
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "marketing_insights",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Strategic marketing insights for an e-commerce sales snapshot"),
				},
			},
		},
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}
	return ParseGenerated(resp.OutputText())
}

func envelopeSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(generatedEnvelope{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}

// ParseGenerated decodes a model answer, drops insights outside the closed
// category, priority and action sets, and assigns fresh ids.
func ParseGenerated(content string) ([]domain.Insight, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var envelope generatedEnvelope
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	insights := make([]domain.Insight, 0, len(envelope.Insights))
	for _, item := range envelope.Insights {
		if strings.TrimSpace(item.Title) == "" ||
			!slices.Contains(categories, item.Category) ||
			!slices.Contains(priorities, item.Priority) ||
			!slices.Contains(actionTypes, item.ActionType) {
			continue
		}
		insights = append(insights, domain.Insight{
			ID:             xid.New("insight"),
			Category:       item.Category,
			Title:          strings.TrimSpace(item.Title),
			Description:    strings.TrimSpace(item.Description),
			Priority:       item.Priority,
			ActionType:     item.ActionType,
			Implementation: nonNil(item.Implementation),
			ExpectedImpact: strings.TrimSpace(item.ExpectedImpact),
			Metrics:        nonNil(item.Metrics),
		})
		if len(insights) == MaxInsights {
			break
		}
	}
	if len(insights) == 0 {
		return nil, ErrNoValidInsights
	}
	return insights, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// Prompt renders the summary as the instruction sent to the model.
func Prompt(s Summary) string {
	var b strings.Builder
	b.WriteString(`Você é um especialista em marketing digital e CRM com mais de 15 anos de experiência. Analise os dados de vendas abaixo e forneça insights estratégicos e ações práticas para melhorar o desempenho do negócio.

DADOS DO NEGÓCIO:
`)
	fmt.Fprintf(&b, "- Receita Total: R$ %s\n", export.FormatDecimal(s.Revenue))
	fmt.Fprintf(&b, "- Pedidos Faturados: %d\n", s.Orders)
	fmt.Fprintf(&b, "- Pedidos Cancelados: %d\n", s.CancelledOrders)
	fmt.Fprintf(&b, "- Taxa de Cancelamento: %s%%\n", oneDecimal(s.CancellationRate))
	fmt.Fprintf(&b, "- Clientes Únicos: %d\n", s.Clients)
	fmt.Fprintf(&b, "- Ticket Médio: R$ %s\n", export.FormatDecimal(s.AverageOrderValue))

	b.WriteString("\nTOP 5 PRODUTOS MAIS VENDIDOS:\n")
	for i, p := range s.TopProducts {
		fmt.Fprintf(&b, "%d. %s - %d vendas - R$ %s\n", i+1, p.Name, p.Sales, export.FormatDecimal(p.Revenue))
	}
	b.WriteString("\nTOP 5 CLIENTES:\n")
	for i, c := range s.TopClients {
		fmt.Fprintf(&b, "%d. %s - %d pedidos - R$ %s\n", i+1, c.Name, c.Orders, export.FormatDecimal(c.TotalSpent))
	}
	b.WriteString("\nCANAIS DE VENDA:\n")
	for i, c := range s.Channels {
		fmt.Fprintf(&b, "%d. %s - %d pedidos - R$ %s\n", i+1, c.Channel, c.Orders, export.FormatDecimal(c.Revenue))
	}
	b.WriteString("\nCLIENTES CANCELADOS (TOP 3):\n")
	for i, c := range s.CancelledClients {
		fmt.Fprintf(&b, "%d. %s - %d cancelamentos - Taxa: %s%%\n", i+1, c.Name, c.CancelledOrders, oneDecimal(c.CancellationRate))
	}
	b.WriteString("\nPRODUTOS CANCELADOS (TOP 3):\n")
	for i, p := range s.CancelledProducts {
		fmt.Fprintf(&b, "%d. %s - Taxa: %s%%\n", i+1, p.Name, oneDecimal(p.CancellationRate))
	}
	b.WriteString("\nCUPONS MAIS USADOS:\n")
	for i, c := range s.Coupons {
		fmt.Fprintf(&b, "%d. %s - %d usos - R$ %s\n", i+1, c.Code, c.Uses, export.FormatDecimal(c.Revenue))
	}
	b.WriteString("\nPRODUTOS COMPRADOS JUNTOS:\n")
	for i, c := range s.Combinations {
		fmt.Fprintf(&b, "%d. %s + %s - %d vezes - Confiança: %s%%\n", i+1, c.ProductA, c.ProductB, c.Count, oneDecimal(c.ConfidenceScore))
	}
	b.WriteString("\nREGIÕES TOP:\n")
	for i, r := range s.Regions {
		fmt.Fprintf(&b, "%d. %s - %d pedidos - R$ %s\n", i+1, r.City, r.Orders, export.FormatDecimal(r.Revenue))
	}

	fmt.Fprintf(&b, `
Com base nesses dados, forneça exatamente %d insights estratégicos. Cada insight deve ser uma ação prática e específica que pode ser implementada imediatamente.

DIRETRIZES:
1. Seja específico e prático, evite generalidades
2. Inclua números e percentuais quando relevante
3. Foque em ações que podem ser implementadas em 30 dias
4. Considere o perfil do negócio (e-commerce/marketplace)
5. Priorize ações com maior ROI potencial
6. Inclua campanhas de email marketing, WhatsApp, cupons e promoções
7. Considere cross-selling e upselling
8. Analise oportunidades de retenção e reativação
9. Identifique produtos com potencial de crescimento
10. Sugira ações para reduzir cancelamentos
`, MaxInsights)
	return b.String()
}
