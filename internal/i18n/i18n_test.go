package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInitAndTranslate(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tests := []struct {
		lang  string
		msgID string
		want  string
	}{
		{"en", "verdict.accepted", "Accepted"},
		{"en", "verdict.wrong_answer", "Wrong answer"},
		{"en", "title.newbie", "Newbie"},
		{"ru", "verdict.accepted", "Зачтено"},
		{"ru", "title.master", "Мастер"},
		{"ru", "error.contest_not_found", "Контест не найден"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.msgID, func(t *testing.T) {
			ctx := WithLocalizer(context.Background(), NewLocalizer(tt.lang))
			if got := T(ctx, tt.msgID); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.msgID, got, tt.want)
			}
		})
	}
}

func TestMissingTranslationFallsBackToID(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
	if got := T(ctx, "no.such.message"); got != "no.such.message" {
		t.Errorf("expected message ID fallback, got %q", got)
	}
}

func TestContextWithoutLocalizerUsesEnglish(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := T(context.Background(), "verdict.accepted"); got != "Accepted" {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestMiddlewareNegotiatesAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "verdict.accepted")
	})
	handler := Middleware("en")(next)

	tests := []struct {
		header string
		want   string
	}{
		{"ru", "Зачтено"},
		{"ru-RU,ru;q=0.9,en;q=0.8", "Зачтено"},
		{"", "Accepted"},
		{"de", "Accepted"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Accept-Language", tt.header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if got != tt.want {
			t.Errorf("Accept-Language %q: got %q, want %q", tt.header, got, tt.want)
		}
	}
}
