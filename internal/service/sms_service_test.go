package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"newsreel_backend/internal/config"
	"testing"
)

func TestTwilioSend(t *testing.T) {
	var form map[string]string
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		form = map[string]string{"To": r.PostForm.Get("To"), "From": r.PostForm.Get("From"), "Body": r.PostForm.Get("Body")}
		user, pass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1","error_code":null}`))
	}))
	defer srv.Close()

	svc := NewTwilioSMSService(config.TwilioConfig{AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550000000", APIURL: srv.URL})
	if err := svc.Send(context.Background(), "+12025550100", "code 123456"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if form["To"] != "+12025550100" || form["From"] != "+15550000000" || form["Body"] != "code 123456" {
		t.Fatalf("unexpected form %v", form)
	}
	if user != "AC123" || pass != "tok" {
		t.Fatalf("unexpected basic auth %s:%s", user, pass)
	}
}

func TestTwilioSendErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusBadRequest, `{"message":"invalid number"}`},
		{"error code", http.StatusCreated, `{"error_code":21211}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			svc := NewTwilioSMSService(config.TwilioConfig{AccountSID: "AC1", APIURL: srv.URL})
			if err := svc.Send(context.Background(), "+1", "x"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
