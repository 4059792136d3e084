package http

import "testing"

func TestParseReportCommand(t *testing.T) {
    cases := []struct {
        text string
        days int
        ok   bool
    }{
        {"/report 90d", 90, true},
        {"/report 30", 30, true},
        {"/report", 0, true},
        {"/report yesterday", 0, false},
        {"/report -5d", 0, false},
        {"/help", 0, false},
    }
    for _, tc := range cases {
        days, ok := parseReportCommand(tc.text)
        if days != tc.days || ok != tc.ok {
            t.Fatalf("parseReportCommand(%q) = %d,%v want %d,%v", tc.text, days, ok, tc.days, tc.ok)
        }
    }
}
