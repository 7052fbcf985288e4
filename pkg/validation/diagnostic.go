package validation

import "fmt"

// Severity of a diagnostic. Only errors make a graph invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code identifies the rule that produced a diagnostic.
type Code string

const (
	CodeCycle             Code = "cycle"
	CodeUnreachable       Code = "unreachable"
	CodeUnconnected       Code = "unconnected"
	CodeOutDegree         Code = "out_degree"
	CodeAmbiguousBranches Code = "ambiguous_branches"
	CodeInvalidNode       Code = "invalid_node"
	CodeMissingNode       Code = "missing_node"
	CodeMissingStart      Code = "missing_start"
	CodeNoStart           Code = "no_start"
)

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	NodeID   string   `json:"node_id,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.NodeID == "" {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
	}

	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.NodeID, d.Message)
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diagnostics []Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

// Filter returns the diagnostics carrying the given code.
func Filter(diagnostics []Diagnostic, code Code) []Diagnostic {
	var matched []Diagnostic

	for _, d := range diagnostics {
		if d.Code == code {
			matched = append(matched, d)
		}
	}

	return matched
}

func errorf(code Code, nodeID, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: code, NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}

func warningf(code Code, nodeID, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}
