package harness

import (
	"fmt"
)

type pendingConfirm struct {
	question string
	onYes    func()
	onNo     func()
}

// scriptedPage plays the user and the page: it holds open confirms until
// an answer step, and answers conditions and stylesheet checks from the
// scenario script.
type scriptedPage struct {
	confirms   []pendingConfirm
	alerts     []string
	conditions map[string][]bool
	styles     int
}

func newScriptedPage(s *Scenario) *scriptedPage {
	p := &scriptedPage{
		conditions: make(map[string][]bool, len(s.Conditions)),
		styles:     s.StylesPending,
	}
	for expr, answers := range s.Conditions {
		p.conditions[expr] = append([]bool(nil), answers...)
	}
	return p
}

// Confirm implements commands.Dialogs.
func (p *scriptedPage) Confirm(question, _ string, onYes, onNo func()) {
	p.confirms = append(p.confirms, pendingConfirm{question: question, onYes: onYes, onNo: onNo})
}

// Alert implements commands.Dialogs.
func (p *scriptedPage) Alert(title, message string) {
	if title == "" {
		p.alerts = append(p.alerts, message)
		return
	}
	p.alerts = append(p.alerts, title+": "+message)
}

// answer closes the oldest open confirm.
func (p *scriptedPage) answer(yes bool) error {
	if len(p.confirms) == 0 {
		return fmt.Errorf("no confirm dialog is open")
	}
	c := p.confirms[0]
	p.confirms = p.confirms[1:]
	if yes {
		c.onYes()
	} else {
		c.onNo()
	}
	return nil
}

// Eval implements commands.Script.
func (p *scriptedPage) Eval(expr string) (bool, error) {
	answers, ok := p.conditions[expr]
	if !ok || len(answers) == 0 {
		return false, fmt.Errorf("unknown condition %q", expr)
	}
	v := answers[0]
	if len(answers) > 1 {
		p.conditions[expr] = answers[1:]
	}
	return v, nil
}

// Loaded implements commands.Styles.
func (p *scriptedPage) Loaded() bool {
	if p.styles > 0 {
		p.styles--
		return false
	}
	return true
}
