package salesforce

import (
	"strings"
	"testing"
)

func TestQuoteStringEscapesQuotesAndBackslashes(t *testing.T) {
	t.Parallel()

	got := QuoteString(`O'Brien \ Sons`)
	want := `'O\'Brien \\ Sons'`
	if got != want {
		t.Fatalf("QuoteString() = %s, want %s", got, want)
	}
}

func TestQuoteStringEscapesLineBreaks(t *testing.T) {
	t.Parallel()

	got := QuoteString("a\nb\rc")
	want := `'a\nb\rc'`
	if got != want {
		t.Fatalf("QuoteString() = %s, want %s", got, want)
	}
}

func TestQuoteStringNeutralizesInjection(t *testing.T) {
	t.Parallel()

	got := QuoteString("x' OR Name != '")
	if strings.Contains(got[1:len(got)-1], "' ") {
		t.Fatalf("QuoteString() left an unescaped quote: %s", got)
	}
	if got != `'x\' OR Name != \''` {
		t.Fatalf("QuoteString() = %s", got)
	}
}

func TestDigits(t *testing.T) {
	t.Parallel()

	if got := Digits("+1 (555) 123-4567"); got != "15551234567" {
		t.Fatalf("Digits() = %q, want 15551234567", got)
	}
	if got := Digits("no digits"); got != "" {
		t.Fatalf("Digits() = %q, want empty", got)
	}
}

func TestSOQLBuildsFullQuery(t *testing.T) {
	t.Parallel()

	got := NewSOQL("Case__c", "Id", "CaseNumber").
		WhereEq("Status", "Pending Client Signature").
		WhereContains("Contact.Name", "Smith").
		OrderByDesc("CreatedDate").
		Limit(10).
		String()

	want := "SELECT Id, CaseNumber FROM Case__c WHERE Status = 'Pending Client Signature' AND Contact.Name LIKE '%Smith%' ORDER BY CreatedDate DESC LIMIT 10"
	if got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}

func TestSOQLSubqueryIsParenthesized(t *testing.T) {
	t.Parallel()

	got := NewSOQL("Account", "Id").
		Subquery(NewSOQL("Cases__r", "Id").WhereNotEq("Status", "Closed").Limit(3)).
		Limit(1).
		String()

	want := "SELECT Id, (SELECT Id FROM Cases__r WHERE Status != 'Closed' LIMIT 3) FROM Account LIMIT 1"
	if got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}

func TestSOQLWhereAnyContainsBuildsOrGroup(t *testing.T) {
	t.Parallel()

	got := NewSOQL("Account", "Id").
		WhereAnyContains("5551234567", "PersonMobilePhone", "Phone").
		String()

	want := "SELECT Id FROM Account WHERE (PersonMobilePhone LIKE '%5551234567%' OR Phone LIKE '%5551234567%')"
	if got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}

func TestSOQLWhereAnyPrefix(t *testing.T) {
	t.Parallel()

	got := NewSOQL("Account", "Id").
		WhereAnyPrefix("90210", "PersonMailingPostalCode", "Home_Zip_Code__c").
		String()

	want := "SELECT Id FROM Account WHERE (PersonMailingPostalCode LIKE '90210%' OR Home_Zip_Code__c LIKE '90210%')"
	if got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}
