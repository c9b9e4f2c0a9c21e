package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		title, desc string
		want        string
	}{
		{"Stocks slide as inflation data rattles Wall Street", "Investors weigh the next interest rate move", "business"},
		{"Oscar nominations announced", "The film and its lead actress lead the field", "entertainment"},
		{"Measles outbreak spreads", "Hospital officials urge parents to vaccinate as the virus spreads", "health"},
		{"NASA telescope spots distant planet", "Researchers say the study changes what we know about space", "science"},
		{"Late goal sends champions into the World Cup final", "The coach praised the team after the match", "sports"},
		{"Microsoft unveils new AI chip", "The software giant bets on artificial intelligence", "technology"},
		{"Council meeting rescheduled", "The meeting will now take place on Thursday", "general"},
		{"", "", "general"},
	}
	for _, tt := range tests {
		if got := Classify(tt.title, tt.desc); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}

func TestShortKeywordsMatchWholeWords(t *testing.T) {
	// "ai" must not match inside "said" or "rain".
	if got := Classify("Rain expected, forecaster said", "Heavy rain said to continue"); got != General {
		t.Errorf("got %s, want general", got)
	}
}

func TestTieGoesToEarlierCategory(t *testing.T) {
	// "startup" is both a business and a technology keyword.
	if got := Classify("startup", ""); got != "business" {
		t.Errorf("got %s, want business", got)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Hello, World! (test)")
	want := []string{"hello", "world", "test"}
	if len(got) != len(want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
