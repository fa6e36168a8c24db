package email

// Email представляет структуру email сообщения
type Email struct {
	From     string
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// TemplateData представляет данные для шаблонов писем
type TemplateData map[string]interface{}

// AlertKind - вид инцидента, о котором сообщаем операторам
type AlertKind string

const (
	AlertIntegrityViolation AlertKind = "integrity_violation"
	AlertUpstreamRejection  AlertKind = "upstream_rejection"
)

// Alert - инцидент по платежу
type Alert struct {
	Kind             AlertKind
	TransactionParam string
	PrincipalRef     string
	Reason           string
	Details          map[string]string
}
