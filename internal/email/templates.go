package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

const alertTemplate = `<h3>{{.Title}}</h3>
<p>transaction_param: <b>{{.TransactionParam}}</b></p>
<p>principal: {{.PrincipalRef}}</p>
<p>reason: {{.Reason}}</p>
{{if .Details}}<ul>{{range $k, $v := .Details}}<li>{{$k}}: {{$v}}</li>{{end}}</ul>{{end}}`

// TemplateManager хранит html-шаблоны писем
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами алертов
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	for _, kind := range []AlertKind{AlertIntegrityViolation, AlertUpstreamRejection} {
		if err := tm.AddTemplate(string(kind), alertTemplate); err != nil {
			panic(err)
		}
	}
	return tm
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет (или заменяет) шаблон
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}
