package chat

import (
	"sort"
	"strings"
)

// faqAnswers maps canonical lowercase questions to fixed answers.
var faqAnswers = map[string]string{
	"what services do you offer":   "We offer Telecom Infrastructure, Geospatial & GIS Solutions, Skill Development, and Consultancy & Business Incubation.",
	"what are your business hours": "Our business hours are Monday - Sunday, from 9:00 AM to 8:00 PM.",
	"how do i contact support":     "You can contact our support team via email at info@digitalindian.co.in or by calling +91 7908735132.",
	"how can i book a meeting":     "You can book a meeting by using the 'View Calendar' option on our contact page.",
}

// faqKeys holds the FAQ questions longest first, ties broken lexically, so that a
// message containing two overlapping questions always resolves the same way.
var faqKeys = sortedKeys(faqAnswers)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// matchFAQ returns the answer for the first FAQ question contained in the
// normalized message.
func matchFAQ(normalized string) (string, bool) {
	normalized = strings.TrimRight(normalized, "?")
	for _, key := range faqKeys {
		if strings.Contains(normalized, key) {
			return faqAnswers[key], true
		}
	}
	return "", false
}
