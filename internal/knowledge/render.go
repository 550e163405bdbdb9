package knowledge

import "strings"

// Section headers of the rendered context block. Courses render before QA
// pairs; the order is fixed.
const (
	courseSectionHeader = "【通識活動】"
	qaSectionHeader     = "【常見問答】"
)

// RenderContextBlock assembles the transient context block grounding one
// completion request: one section per non-empty collection, each record as a
// fixed two-line template followed by a blank line. Returns "" when both
// collections are empty.
func RenderContextBlock(courses []Course, qas []QA) string {
	if len(courses) == 0 && len(qas) == 0 {
		return ""
	}

	var b strings.Builder
	if len(courses) > 0 {
		b.WriteString(courseSectionHeader + "\n")
		for _, c := range courses {
			b.WriteString("活動：" + c.Title + "\n")
			b.WriteString("時間：" + c.Time + "\n\n")
		}
	}
	if len(qas) > 0 {
		b.WriteString(qaSectionHeader + "\n")
		for _, q := range qas {
			b.WriteString("Q：" + q.Question + "\n")
			b.WriteString("A：" + q.Answer + "\n\n")
		}
	}
	return b.String()
}
