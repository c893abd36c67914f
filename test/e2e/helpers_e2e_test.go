//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// baseURL points at a running server; override with AIMI_E2E_BASE_URL.
var baseURL = getenv("AIMI_E2E_BASE_URL", "http://localhost:8080")

const defaultResumeText = `Backend engineer with five years of experience.
Built REST APIs in Go and Python, tuned PostgreSQL queries, deployed
services on Kubernetes and wired Kafka pipelines for event processing.`

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newClient() *http.Client { return &http.Client{Timeout: 30 * time.Second} }

// requireAppUp skips the test when no server answers on /healthz.
func requireAppUp(t *testing.T, client *http.Client) {
	t.Helper()
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		t.Skipf("app not reachable at %s: %v", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("app not healthy at %s: status %d", baseURL, resp.StatusCode)
	}
}

// doJSON sends a JSON request and decodes the JSON response body. Retries
// briefly on 429 so the per-IP rate limit does not flake the suite.
func doJSON(t *testing.T, client *http.Client, method, url string, payload any) (int, map[string]any) {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequest(method, url, bytes.NewReader(body))
		require.NoError(t, err)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests && attempt < 10 {
			resp.Body.Close()
			time.Sleep(3 * time.Second)
			continue
		}
		defer resp.Body.Close()
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}
}

// uploadResume ingests resume text through the JSON body form of the
// upload endpoint and returns the resume id.
func uploadResume(t *testing.T, client *http.Client, text string) string {
	t.Helper()
	status, out := doJSON(t, client, http.MethodPost, baseURL+"/v1/resumes", map[string]string{
		"filename": "e2e_resume.txt",
		"text":     text,
	})
	require.Equal(t, http.StatusOK, status, "upload response: %#v", out)
	id, _ := out["resume_id"].(string)
	require.NotEmpty(t, id, "upload should return resume_id: %#v", out)
	return id
}

// uploadResumeMultipart ingests a resume as a multipart file upload and
// returns the raw response for status assertions.
func uploadResumeMultipart(t *testing.T, client *http.Client, filename string, content []byte) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fw, err := writer.CreateFormFile("resume", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/resumes", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// startInterview creates a session and returns its id plus the welcome
// message.
func startInterview(t *testing.T, client *http.Client, resumeID, jobRole string, totalQuestions int) (string, string) {
	t.Helper()
	payload := map[string]any{"resume_id": resumeID, "job_role": jobRole}
	if totalQuestions > 0 {
		payload["total_questions"] = totalQuestions
	}
	status, out := doJSON(t, client, http.MethodPost, baseURL+"/v1/interviews", payload)
	require.Equal(t, http.StatusOK, status, "start response: %#v", out)
	id, _ := out["session_id"].(string)
	require.NotEmpty(t, id, "start should return session_id: %#v", out)
	msg, _ := out["message"].(string)
	return id, msg
}

// submitAnswer posts one candidate message to the session.
func submitAnswer(t *testing.T, client *http.Client, sessionID, answer string) (int, map[string]any) {
	t.Helper()
	return doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/v1/interviews/%s/answers", baseURL, sessionID), map[string]string{"answer": answer})
}

// tryPostJSON is the goroutine-safe flavor of doJSON: it returns transport
// errors instead of failing the test, so concurrent workers can report
// through a channel.
func tryPostJSON(client *http.Client, url string, payload any) (int, map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out, nil
}

// errorCode digs the code out of the error envelope.
func errorCode(out map[string]any) string {
	e, ok := out["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}

// waitForReport polls the report endpoint until the worker has stored the
// synthesized report or the deadline passes. Returns the last status and
// body either way.
func waitForReport(t *testing.T, client *http.Client, sessionID string, deadline time.Duration) (int, map[string]any) {
	t.Helper()
	var (
		status int
		out    map[string]any
	)
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		status, out = doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/v1/interviews/%s/report", baseURL, sessionID), nil)
		if status == http.StatusOK {
			return status, out
		}
		time.Sleep(3 * time.Second)
	}
	return status, out
}

// answerText returns a plausible answer for question n so the evaluator
// has something to grade.
func answerText(n int) string {
	return fmt.Sprintf("For question %d: I would profile the hot path first, add an index or cache when measurements justify it, and cover the change with tests before rolling it out gradually.", n)
}

func trimmedLower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
