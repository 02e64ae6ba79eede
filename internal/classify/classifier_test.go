package classify

import (
	"reflect"
	"testing"

	"github.com/nhle/mailsweep/internal/model"
)

func testClassifier(t *testing.T, name string, wholeWord bool) *Classifier {
	t.Helper()
	return New(model.DefaultTaxonomy().Normalized(), name, wholeWord)
}

func TestClassifyCategories(t *testing.T) {
	c := testClassifier(t, "", false)

	tests := []struct {
		name string
		msg  model.NormalizedMessage
		want []model.CategoryTag
	}{
		{
			name: "social media domain",
			msg: model.NormalizedMessage{
				SenderAddr:   "updates@facebookmail.com",
				SenderDomain: "facebookmail.com",
				Subject:      "You have new friend requests",
			},
			want: []model.CategoryTag{"Social Media"},
		},
		{
			name: "finance by address",
			msg: model.NormalizedMessage{
				SenderAddr:   "alerts@bank.com",
				SenderDomain: "bank.com",
				Subject:      "Statement ready",
			},
			want: []model.CategoryTag{"Finance"},
		},
		{
			name: "account subject keyword",
			msg: model.NormalizedMessage{
				SenderAddr:   "security@randomsite.example",
				SenderDomain: "randomsite.example",
				Subject:      "Verify your account",
			},
			want: []model.CategoryTag{"Accounts"},
		},
		{
			name: "no match",
			msg: model.NormalizedMessage{
				SenderAddr:   "hello@smallblog.example",
				SenderDomain: "smallblog.example",
				Subject:      "thoughts on gardening",
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(&tt.msg)
			if !reflect.DeepEqual(got.Categories, tt.want) {
				t.Errorf("Categories = %v, want %v", got.Categories, tt.want)
			}
		})
	}
}

func TestClassifyCategoriesMultipleMatchesSorted(t *testing.T) {
	c := testClassifier(t, "", false)

	msg := model.NormalizedMessage{
		SenderAddr:   "team@paypal.com",
		SenderDomain: "paypal.com",
		Subject:      "Confirm your account password",
	}

	got := c.Classify(&msg)
	want := []model.CategoryTag{"Accounts", "Finance"}
	if !reflect.DeepEqual(got.Categories, want) {
		t.Errorf("Categories = %v, want %v", got.Categories, want)
	}
}

func TestClassifyPersonalized(t *testing.T) {
	tests := []struct {
		name      string
		owner     string
		wholeWord bool
		msg       model.NormalizedMessage
		want      bool
	}{
		{
			name:  "name in body from human sender",
			owner: "Jordan",
			msg: model.NormalizedMessage{
				SenderAddr: "alice@friendmail.example",
				Subject:    "lunch next week?",
				BodyText:   "Hey Jordan, are you free on Tuesday?",
			},
			want: true,
		},
		{
			name:  "name in subject",
			owner: "Jordan",
			msg: model.NormalizedMessage{
				SenderAddr: "hr@employer.example",
				Subject:    "Jordan - interview follow-up",
				BodyText:   "Thanks for coming in.",
			},
			want: true,
		},
		{
			name:  "no-reply sender excluded",
			owner: "Jordan",
			msg: model.NormalizedMessage{
				SenderAddr: "no-reply@shopco.com",
				Subject:    "Jordan, your order shipped",
				BodyText:   "Hi Jordan, your package is on the way.",
			},
			want: false,
		},
		{
			name:  "newsletter sender excluded",
			owner: "Jordan",
			msg: model.NormalizedMessage{
				SenderAddr: "newsletter@news.example",
				Subject:    "Jordan, this week in tech",
			},
			want: false,
		},
		{
			name:  "name absent",
			owner: "Jordan",
			msg: model.NormalizedMessage{
				SenderAddr: "alice@friendmail.example",
				Subject:    "meeting notes",
				BodyText:   "attached are the notes",
			},
			want: false,
		},
		{
			name:  "empty configured name never personalized",
			owner: "",
			msg: model.NormalizedMessage{
				SenderAddr: "alice@friendmail.example",
				BodyText:   "anything at all",
			},
			want: false,
		},
		{
			name:      "whole word rejects substring",
			owner:     "Ann",
			wholeWord: true,
			msg: model.NormalizedMessage{
				SenderAddr: "alice@friendmail.example",
				BodyText:   "The planning meeting is tomorrow.",
			},
			want: false,
		},
		{
			name:      "whole word accepts exact word",
			owner:     "Ann",
			wholeWord: true,
			msg: model.NormalizedMessage{
				SenderAddr: "alice@friendmail.example",
				BodyText:   "Hi Ann, see you soon.",
			},
			want: true,
		},
		{
			name:  "substring mode matches inside words",
			owner: "Ann",
			msg: model.NormalizedMessage{
				SenderAddr: "alice@friendmail.example",
				BodyText:   "The planning meeting is tomorrow.",
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClassifier(t, tt.owner, tt.wholeWord)
			got := c.Classify(&tt.msg)
			if got.Personalized != tt.want {
				t.Errorf("Personalized = %v, want %v", got.Personalized, tt.want)
			}
		})
	}
}

func TestIsAutomatedSender(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"noreply@example.com", true},
		{"No-Reply@Example.com", true},
		{"donotreply@bank.com", true},
		{"notifications@github.example", true},
		{"bounce-123@lists.example", true},
		{"alice@friendmail.example", false},
		{"support@shopco.com", false},
	}

	for _, tt := range tests {
		if got := isAutomatedSender(tt.addr); got != tt.want {
			t.Errorf("isAutomatedSender(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
