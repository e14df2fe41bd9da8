package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeResponse mirrors the siteprofile API response envelope. The
// record is kept raw and re-indented for the model.
type scrapeResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// recordSummary is the part of the record used for the result header.
type recordSummary struct {
	FinalURL    string   `json:"final_url"`
	Rendered    bool     `json:"rendered"`
	FieldsFound []string `json:"fields_found"`
	CompanyName struct {
		Status string `json:"status"`
		Value  string `json:"value"`
	} `json:"company_name"`
}

func main() {
	apiURL := os.Getenv("SITEPROFILE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5000"
	}

	s := server.NewMCPServer(
		"siteprofile",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	profileSiteTool := mcp.NewTool("profile_site",
		mcp.WithDescription("Profile a startup or company website: returns company name, title, description, pricing, features, team, metrics, contact details, social links and page text. Every field is reported as found or not_found. JavaScript-heavy sites are rendered in a headless browser when needed."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The http(s) URL of the company site to profile"),
		),
	)
	s.AddTool(profileSiteTool, handleProfileSite(strings.TrimRight(apiURL, "/"), &http.Client{Timeout: 90 * time.Second}))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleProfileSite(apiURL string, client *http.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := json.Marshal(map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/scrape", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response (HTTP %d): %v", resp.StatusCode, err)), nil
		}

		if !scrapeResp.Success {
			errMsg := "profiling failed"
			if scrapeResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", scrapeResp.Error.Code, scrapeResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatRecord(scrapeResp.Data)), nil
	}
}

// formatRecord renders a short header followed by the indented record.
func formatRecord(data json.RawMessage) string {
	var sb strings.Builder

	var sum recordSummary
	if err := json.Unmarshal(data, &sum); err == nil {
		if sum.CompanyName.Status == "found" {
			fmt.Fprintf(&sb, "Company: %s\n", sum.CompanyName.Value)
		}
		fmt.Fprintf(&sb, "Source: %s (rendered: %v)\n", sum.FinalURL, sum.Rendered)
		fmt.Fprintf(&sb, "Fields found: %s\n\n", strings.Join(sum.FieldsFound, ", "))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		sb.Write(data)
	} else {
		sb.Write(pretty.Bytes())
	}
	return sb.String()
}
