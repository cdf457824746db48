package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"vellum/backend/internal/domain"
)

// fold lowercases value and strips diacritics, so "Aprovação" matches "aprovacao".
func fold(value string) string {
	// transform chains keep state and cannot be shared across goroutines
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, value)
	if err != nil {
		out = value
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// NormalizeOrderStatus classifies a free-text sales status once, at ingestion.
func NormalizeOrderStatus(raw string) domain.OrderStatus {
	folded := fold(raw)
	switch {
	case strings.Contains(folded, "cancel"):
		return domain.StatusCancelled
	case containsAny(folded, "faturad", "invoic", "billed"):
		return domain.StatusBilled
	default:
		return domain.StatusOther
	}
}

var funnelRules = []struct {
	status  domain.FunnelStatus
	markers []string
}{
	{domain.FunnelPendingApproval, []string{"aguardando aprovacao", "configurando arquivo", "pending approval", "carrinho"}},
	{domain.FunnelPendingSalesperson, []string{"aguardando retorno do vendedor", "aguardando vendedor", "pending salesperson"}},
	{domain.FunnelCancelled, []string{"cancel"}},
	{domain.FunnelDelivered, []string{"entregue", "delivered"}},
	{domain.FunnelFinalized, []string{"finalizado", "finalized", "pronto para envio"}},
	{domain.FunnelApproved, []string{"aprovado", "approved", "pago", "em producao"}},
}

// NormalizeFunnelStatus maps a free-text funnel status onto the closed set of
// funnel states. ok is false when no rule matches.
func NormalizeFunnelStatus(raw string) (domain.FunnelStatus, bool) {
	if status, ok := domain.ParseFunnelStatus(raw); ok {
		return status, true
	}
	folded := fold(raw)
	if folded == "" {
		return "", false
	}
	for _, rule := range funnelRules {
		if containsAny(folded, rule.markers...) {
			return rule.status, true
		}
	}
	return "", false
}

func containsAny(value string, markers ...string) bool {
	for _, marker := range markers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}
