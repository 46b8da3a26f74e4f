package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var judge0LanguageIDs = map[string]int{
	"python": 71,
	"cpp":    54,
}

// Judge0 status ids
const (
	judge0InQueue    = 1
	judge0Processing = 2
	judge0Accepted   = 3
	judge0Wrong      = 4
	judge0TLE        = 5
	judge0CompileErr = 6
	judge0InternalEr = 13
)

type Judge0Client struct {
	BaseURL      string
	APIKey       string
	Client       *http.Client
	PollInterval time.Duration
	MaxPolls     int
}

func NewJudge0Client(baseURL, apiKey string) *Judge0Client {
	return &Judge0Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		Client:       &http.Client{Timeout: 10 * time.Second},
		PollInterval: time.Second,
		MaxPolls:     30,
	}
}

func SupportedLanguage(language string) bool {
	_, ok := judge0LanguageIDs[language]
	return ok
}

type judge0Submission struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type judge0Result struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Time          *string `json:"time"`
}

func (c *Judge0Client) Evaluate(ctx context.Context, code, language, expectedOutput string) (*Verdict, error) {
	languageID, ok := judge0LanguageIDs[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	token, err := c.submit(ctx, judge0Submission{
		SourceCode:     code,
		LanguageID:     languageID,
		ExpectedOutput: expectedOutput,
	})
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < c.MaxPolls; attempt++ {
		result, err := c.fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		if result.Status.ID != judge0InQueue && result.Status.ID != judge0Processing {
			// Internal and exec format errors are the sandbox's fault, not
			// the submitter's, so they never become a verdict.
			if mapJudge0Status(result.Status.ID) == StatusError {
				return nil, fmt.Errorf("%w: judge0 status %d: %s", ErrJudgeFailure, result.Status.ID, judge0FailureDetail(result))
			}
			return toVerdict(result, expectedOutput), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}

	return nil, ErrTimeout
}

func (c *Judge0Client) submit(ctx context.Context, sub judge0Submission) (string, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit code to judge0: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("judge0 submit returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var created struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode judge0 token: %w", err)
	}
	return created.Token, nil
}

func (c *Judge0Client) fetch(ctx context.Context, token string) (*judge0Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/submissions/"+token, nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get judge0 result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judge0 result returned %d", resp.StatusCode)
	}

	var result judge0Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode judge0 result: %w", err)
	}
	return &result, nil
}

func (c *Judge0Client) setAuth(req *http.Request) {
	if c.APIKey == "" {
		return
	}
	req.Header.Set("X-RapidAPI-Key", c.APIKey)
	req.Header.Set("X-RapidAPI-Host", "judge0-ce.p.rapidapi.com")
}

func toVerdict(r *judge0Result, expectedOutput string) *Verdict {
	status := mapJudge0Status(r.Status.ID)
	stdout := deref(r.Stdout)

	v := &Verdict{
		Status: status,
		Output: stdout,
	}
	if r.Time != nil {
		v.ExecutionTime, _ = strconv.ParseFloat(*r.Time, 64)
	}
	if status == StatusSuccess {
		v.Correct = strings.TrimSpace(stdout) == strings.TrimSpace(expectedOutput)
	} else {
		v.Error = deref(r.Stderr)
		if v.Error == "" {
			v.Error = deref(r.CompileOutput)
		}
	}
	return v
}

func mapJudge0Status(id int) string {
	switch {
	case id == judge0Accepted:
		return StatusSuccess
	case id == judge0Wrong:
		return StatusWrongAnswer
	case id == judge0TLE:
		return StatusTimeout
	case id == judge0CompileErr:
		return StatusCompilationError
	case id > judge0CompileErr && id < judge0InternalEr:
		return StatusRuntimeError
	default:
		return StatusError
	}
}

func judge0FailureDetail(r *judge0Result) string {
	if detail := strings.TrimSpace(deref(r.Stderr)); detail != "" {
		return detail
	}
	return r.Status.Description
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
