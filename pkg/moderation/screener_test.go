package moderation

import (
	"testing"

	"swapshelf/pkg/domain"
)

func TestKeywordScreenerVerdicts(t *testing.T) {
	screener := NewKeywordScreener()

	tests := []struct {
		name  string
		title string
		want  domain.VerdictStatus
	}{
		{"benign title", "Calculus Early Transcendentals", domain.VerdictApproved},
		{"denylist word", "Totally not a scam textbook", domain.VerdictFlagged},
		{"uppercase denylist word", "FRAUD Examination 4th Edition", domain.VerdictFlagged},
		{"multi-word phrase", "A History of Human Trafficking Law", domain.VerdictFlagged},
		{"keyword inside larger word", "Scampering Through Biology", domain.VerdictFlagged},
		{"empty title", "", domain.VerdictApproved},
		{"whitespace title", "   \t ", domain.VerdictApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := screener.Screen(tt.title)
			if got.Status != tt.want {
				t.Fatalf("Screen(%q).Status = %s, want %s", tt.title, got.Status, tt.want)
			}
		})
	}
}

func TestKeywordScreenerReasonNamesKeyword(t *testing.T) {
	screener := NewKeywordScreener()
	verdict := screener.Screen("great spam recipes")
	if verdict.Status != domain.VerdictFlagged {
		t.Fatalf("expected flagged verdict, got %s", verdict.Status)
	}
	want := `flagged for review due to "spam"`
	if verdict.Reason != want {
		t.Fatalf("Reason = %q, want %q", verdict.Reason, want)
	}
}

func TestKeywordScreenerApprovedHasNoReason(t *testing.T) {
	verdict := NewKeywordScreener().Screen("Linear Algebra Done Right")
	if verdict.Status != domain.VerdictApproved {
		t.Fatalf("expected approved verdict, got %s", verdict.Status)
	}
	if verdict.Reason != "" {
		t.Fatalf("approved verdict should carry no reason, got %q", verdict.Reason)
	}
}

func TestKeywordScreenerWithCustomList(t *testing.T) {
	screener := NewKeywordScreenerWithList([]string{"crypto"})
	if got := screener.Screen("Intro to Crypto Trading").Status; got != domain.VerdictFlagged {
		t.Fatalf("custom keyword not applied, got %s", got)
	}
	if got := screener.Screen("spam stories").Status; got != domain.VerdictApproved {
		t.Fatalf("default denylist should be replaced, got %s", got)
	}
}
