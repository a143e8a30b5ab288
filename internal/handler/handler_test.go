package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gradescan/gradescan/internal/eval"
	"github.com/gradescan/gradescan/internal/model"
)

type stubRecognizer struct {
	text string
	err  error
}

func (s *stubRecognizer) Recognize(_ context.Context, _ []byte) (string, error) {
	return s.text, s.err
}

func testServer(t *testing.T, rec *stubRecognizer) *httptest.Server {
	t.Helper()
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"1": {Kind: model.KindMCQ, Marks: 2, CorrectOption: "B"},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 1, TotalMarks: 2},
	}

	r := chi.NewRouter()
	New(key, rec, eval.New(nil)).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func uploadSheet(t *testing.T, url string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("sheet", "alice.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(url+"/api/grade", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := testServer(t, &stubRecognizer{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestGetKey(t *testing.T) {
	srv := testServer(t, &stubRecognizer{})

	resp, err := http.Get(srv.URL + "/api/key")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var key model.AnswerKey
	if err := json.NewDecoder(resp.Body).Decode(&key); err != nil {
		t.Fatal(err)
	}
	if key.Metadata.TotalMarks != 2 {
		t.Errorf("total marks = %v, want 2", key.Metadata.TotalMarks)
	}
}

func TestGradeUpload(t *testing.T) {
	srv := testServer(t, &stubRecognizer{text: "1.\nB"})

	resp := uploadSheet(t, srv.URL, []byte("fake-scan"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var ev model.Evaluation
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Summary.TotalScore != 2 {
		t.Errorf("total = %v, want 2", ev.Summary.TotalScore)
	}
	if ev.Questions["1"].Feedback != "Correct answer." {
		t.Errorf("feedback = %q", ev.Questions["1"].Feedback)
	}
}

func TestGradeMissingUpload(t *testing.T) {
	srv := testServer(t, &stubRecognizer{})

	resp, err := http.Post(srv.URL+"/api/grade", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGradeRecognitionFailure(t *testing.T) {
	srv := testServer(t, &stubRecognizer{err: errors.New("service down")})

	resp := uploadSheet(t, srv.URL, []byte("fake-scan"))
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}
