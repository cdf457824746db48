package insight

import (
	"fmt"
	"strconv"

	"vellum/backend/internal/domain"
)

const (
	MaxInsights = 8

	highCancellationRate = 10.0
)

var (
	categories  = []string{"campaigns", "products", "clients", "growth", "retention"}
	priorities  = []string{"high", "medium", "low"}
	actionTypes = []string{"email", "whatsapp", "coupon", "promotion", "strategy"}
)

// Fallback derives a fixed set of recommendations from the summary alone.
func Fallback(summary Summary) []domain.Insight {
	insights := make([]domain.Insight, 0, 4)

	if summary.CancellationRate > highCancellationRate {
		insights = append(insights, domain.Insight{
			Category:    "retention",
			Title:       "Reduzir Taxa de Cancelamento",
			Description: fmt.Sprintf("Taxa de cancelamento de %s%% está acima do ideal. Implementar estratégias de retenção.", oneDecimal(summary.CancellationRate)),
			Priority:    "high",
			ActionType:  "email",
			Implementation: []string{
				"Criar campanha de email para clientes com pedidos cancelados",
				"Implementar pesquisa de motivos de cancelamento",
				"Oferecer desconto de 15% para nova compra",
			},
			ExpectedImpact: "Redução de 30% na taxa de cancelamento em 60 dias",
			Metrics:        []string{"Taxa de cancelamento", "Taxa de conversão de reativação", "Receita recuperada"},
		})
	}

	if len(summary.Combinations) > 0 {
		combo := summary.Combinations[0]
		insights = append(insights, domain.Insight{
			Category:    "products",
			Title:       "Campanha de Cross-Selling",
			Description: fmt.Sprintf("Produtos %s e %s são comprados juntos %d vezes.", combo.ProductA, combo.ProductB, combo.Count),
			Priority:    "medium",
			ActionType:  "promotion",
			Implementation: []string{
				"Criar bundle promocional com os produtos mais vendidos juntos",
				"Implementar recomendação automática no checkout",
				"Campanha de email com oferta especial do combo",
			},
			ExpectedImpact: "Aumento de 25% no ticket médio",
			Metrics:        []string{"Ticket médio", "Taxa de conversão de cross-sell", "Receita por cliente"},
		})
	}

	if summary.TopClientCount > 0 {
		insights = append(insights, domain.Insight{
			Category:    "clients",
			Title:       "Programa VIP para Top Clientes",
			Description: fmt.Sprintf("%d clientes representam grande parte da receita. Criar programa de fidelidade.", summary.TopClientCount),
			Priority:    "high",
			ActionType:  "strategy",
			Implementation: []string{
				"Criar programa VIP com benefícios exclusivos",
				"Oferecer frete grátis permanente para VIPs",
				"Acesso antecipado a novos produtos",
			},
			ExpectedImpact: "Aumento de 40% na retenção de clientes VIP",
			Metrics:        []string{"Taxa de retenção VIP", "Frequência de compra", "Lifetime Value"},
		})
	}

	if len(summary.Coupons) > 0 {
		coupon := summary.Coupons[0]
		insights = append(insights, domain.Insight{
			Category:    "campaigns",
			Title:       "Otimizar Estratégia de Cupons",
			Description: fmt.Sprintf("Cupom %s teve %d usos. Expandir estratégia de cupons.", coupon.Code, coupon.Uses),
			Priority:    "medium",
			ActionType:  "coupon",
			Implementation: []string{
				"Criar cupons segmentados por perfil de cliente",
				"Implementar cupons de primeira compra",
				"Cupons de reativação para clientes inativos",
			},
			ExpectedImpact: "Aumento de 20% na conversão de novos clientes",
			Metrics:        []string{"Taxa de uso de cupons", "Conversão de novos clientes", "ROI de campanhas"},
		})
	}

	for i := range insights {
		insights[i].ID = "fallback-" + strconv.Itoa(i+1)
	}
	return insights
}

func oneDecimal(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64)
}
