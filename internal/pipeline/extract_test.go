package pipeline

import (
    "testing"

    "github.com/yellareddy-celigo/cs-dashboard-suite/internal/domain"
)

func newTestExtractor(t *testing.T) *Extractor {
    t.Helper()
    ext, err := NewExtractor(DefaultAnalysisConfig())
    if err != nil { t.Fatalf("NewExtractor: %v", err) }
    return ext
}

func TestExtractor_AppPriorityOrder(t *testing.T) {
    ext := newTestExtractor(t)
    cases := []struct {
        text string
        want string
    }{
        {"Salesforce opportunity sync failing", "Salesforce"},
        {"NetSuite IA order export stuck in queue", "NetSuite IA"},
        {"netsuite saved search timeout", "NetSuite"},
        {"Salesforce to NetSuite flow erroring", "Salesforce"},
        {"SAP Business ByDesign invoice export timeout", "SAP Business ByDesign"},
        {"payment reconciliation mismatch", Unknown},
        {"", Unknown},
    }
    for _, tc := range cases {
        if got := ext.App(tc.text); got != tc.want {
            t.Fatalf("App(%q) = %q, want %q", tc.text, got, tc.want)
        }
    }
}

func TestExtractor_CustomerLabeledField(t *testing.T) {
    ext := newTestExtractor(t)
    name, conf := ext.Customer("Customer: Acme Corp — Salesforce integration failing")
    if name != "Acme Corp" || conf != domain.ConfidenceHigh {
        t.Fatalf("got %q/%s, want Acme Corp/high", name, conf)
    }
}

func TestExtractor_CustomerCleanup(t *testing.T) {
    ext := newTestExtractor(t)
    cases := []struct {
        text string
        name string
        conf domain.Confidence
    }{
        {"Account: Globex || escalated by CSM", "Globex", domain.ConfidenceHigh},
        {"Company Name: Stark Logistics (Tier 2)", "Stark Logistics", domain.ConfidenceHigh},
        {"Mapping error for Umbrella Corp in order flow", "Umbrella Corp", domain.ConfidenceMedium},
        {"Duplicate invoices reported by client Hooli Retail", "Hooli Retail", domain.ConfidenceMedium},
        {"Escalation from Initech about sync delay", "Initech", domain.ConfidenceLow},
    }
    for _, tc := range cases {
        name, conf := ext.Customer(tc.text)
        if name != tc.name || conf != tc.conf {
            t.Fatalf("Customer(%q) = %q/%s, want %q/%s", tc.text, name, conf, tc.name, tc.conf)
        }
    }
}

func TestExtractor_CustomerRejectsPlaceholdersAndApps(t *testing.T) {
    ext := newTestExtractor(t)
    cases := []string{
        "Customer: n/a",
        "Customer: TBD",
        "Customer: Salesforce",
        "customer: h1. heading leaked into export",
        "token refresh loop in the scheduler",
    }
    for _, text := range cases {
        name, conf := ext.Customer(text)
        if name != Unknown || conf != domain.ConfidenceNone {
            t.Fatalf("Customer(%q) = %q/%s, want Unknown/none", text, name, conf)
        }
    }
}

// A realistic sample of support summaries: the heuristics should resolve at
// least 90% of them to the expected app and customer.
func TestExtractor_RealisticCorpus(t *testing.T) {
    ext := newTestExtractor(t)
    corpus := []struct {
        text     string
        app      string
        customer string
    }{
        {"Customer: Acme Corp — Salesforce integration failing", "Salesforce", "Acme Corp"},
        {"Account: Globex || Shopify orders stuck since Friday", "Shopify", "Globex"},
        {"NetSuite IA order sync stuck for Initech Industries", "NetSuite IA", "Initech Industries"},
        {"Zendesk ticket sync delayed during peak", "Zendesk", Unknown},
        {"Company Name: Stark Logistics (Tier 2)", Unknown, "Stark Logistics"},
        {"SAP Business ByDesign invoice export timeout", "SAP Business ByDesign", Unknown},
        {"Duplicate records created by Amazon listing import", "Amazon", Unknown},
        {"Mapping error for Umbrella Corp in order flow", Unknown, "Umbrella Corp"},
        {"Client: Wayne Retail - HubSpot contact dedupe broken", "HubSpot", "Wayne Retail"},
        {"Slack notifications not delivered for alert channel", "Slack", Unknown},
    }
    correct := 0
    for _, tc := range corpus {
        app := ext.App(tc.text)
        customer, _ := ext.Customer(tc.text)
        if app == tc.app && customer == tc.customer {
            correct++
        } else {
            t.Logf("miss on %q: app=%q customer=%q", tc.text, app, customer)
        }
    }
    if rate := float64(correct) / float64(len(corpus)); rate < 0.9 {
        t.Fatalf("extraction success rate %.2f below 0.90", rate)
    }
}
