package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolNameLog is the name of the file history tool.
const ToolNameLog = "pathfollow_log"

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
	// ErrEmptyFilePath indicates the path parameter is empty.
	ErrEmptyFilePath = errors.New("path parameter is required and must not be empty")
	// ErrNegativeLimit indicates max_commits is negative.
	ErrNegativeLimit = errors.New("max_commits must be non-negative")
)

// LogInput is the input schema for the pathfollow_log tool.
type LogInput struct {
	RepoPath   string `json:"repo_path"             jsonschema:"absolute path to a Git repository"`
	Path       string `json:"path"                  jsonschema:"file path relative to the repository root"`
	Rev        string `json:"rev,omitempty"         jsonschema:"newest revision to consider (default: HEAD)"`
	Start      string `json:"start,omitempty"       jsonschema:"revision at which the path names the file (default: newest commit touching it)"`
	MaxCommits int    `json:"max_commits,omitempty" jsonschema:"maximum number of commits to load (default: all)"`
	NoCollapse bool   `json:"no_collapse,omitempty" jsonschema:"keep merges that do not change the file"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func (s *Server) handleLog(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input LogInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateLogInput(input)
	if err != nil {
		return errorResult(err)
	}

	req := s.defaults
	req.RepoPath = input.RepoPath
	req.Path = input.Path
	req.Rev = input.Rev
	req.Start = input.Start

	if input.MaxCommits > 0 {
		req.MaxCommits = input.MaxCommits
	}

	if input.NoCollapse {
		req.DisableCollapse = true
	}

	report, err := s.follow.Run(ctx, req)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(report)
}

func validateLogInput(input LogInput) error {
	if input.RepoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(input.RepoPath) {
		return ErrRepoPathNotAbsolute
	}

	info, err := os.Stat(input.RepoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, input.RepoPath)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoNotFound, input.RepoPath)
	}

	_, err = os.Stat(filepath.Join(input.RepoPath, ".git"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, input.RepoPath)
	}

	if input.Path == "" {
		return ErrEmptyFilePath
	}

	if input.MaxCommits < 0 {
		return ErrNegativeLimit
	}

	return nil
}
