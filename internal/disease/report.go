package disease

import "strings"

// ReportFileName is the download name offered for a report.
const ReportFileName = "plant_disease_report.txt"

// Field labels, in the order they are shown and written.
const (
	FieldDisease           = "Disease"
	FieldSymptoms          = "Symptoms"
	FieldOrganicPesticides = "Organic Pesticides"
	FieldTips              = "Tips"
)

// FormatReport renders rec as the plain-text report, one "Label: value" line
// per field.
func FormatReport(rec Record) string {
	var b strings.Builder
	for i, f := range rec.Fields() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

// Field is a labelled value of a record.
type Field struct {
	Label string
	Value string
}

// Fields returns the four displayed fields in order.
func (r Record) Fields() []Field {
	return []Field{
		{Label: FieldDisease, Value: r.Disease},
		{Label: FieldSymptoms, Value: r.Symptoms},
		{Label: FieldOrganicPesticides, Value: r.OrganicPesticides},
		{Label: FieldTips, Value: r.Tips},
	}
}
