package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentimages/hoster/internal/cliconfig"
)

var rootCmd = &cobra.Command{
	Use:   "agent-images",
	Short: "Upload images and get markdown for pull request descriptions",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ---- auth login ----

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
}

var (
	loginAPI   string
	loginToken string
	loginAgent string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save the API origin and bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(loginToken)
		if token == "" {
			return fmt.Errorf("missing required flag: --token")
		}
		if strings.TrimSpace(loginAPI) == "" {
			return fmt.Errorf("missing required flag: --api")
		}

		origin, err := cliconfig.EnsureHTTPOrigin(strings.TrimSpace(loginAPI))
		if err != nil {
			return err
		}

		agent := strings.TrimSpace(loginAgent)
		if agent == "" {
			agent = "codex-agent"
		}

		cfg := &cliconfig.Config{
			API:          origin,
			Token:        token,
			DefaultAgent: agent,
		}
		if err := cliconfig.Save(cfg); err != nil {
			return err
		}

		path, _ := cliconfig.Path()
		fmt.Printf("Saved auth config to %s\n", path)
		fmt.Printf("Default agent: %s\n", agent)
		return nil
	},
}

// ---- upload ----

var (
	uploadAgent string
	uploadAlt   string
)

type uploadResponse struct {
	ImageID   string `json:"imageId"`
	ImageURL  string `json:"imageUrl"`
	Markdown  string `json:"markdown"`
	AgentName string `json:"agentName"`
	Error     string `json:"error"`
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file-path>",
	Short: "Upload an image and print markdown for pasting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cliconfig.Load()
		if err != nil {
			return err
		}
		if cfg == nil || cfg.API == "" || cfg.Token == "" {
			return fmt.Errorf("missing auth config, run: agent-images auth login --api <url> --token <token> --agent <name>")
		}

		agentName := strings.TrimSpace(uploadAgent)
		if agentName == "" {
			agentName = cfg.DefaultAgent
		}
		if agentName == "" {
			return fmt.Errorf("no agent name configured, pass --agent <name>")
		}

		filePath := args[0]
		info, err := os.Stat(filePath)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("not a file: %s", filePath)
		}

		fileName := filepath.Base(filePath)
		contentType := mime.TypeByExtension(filepath.Ext(fileName))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if !strings.HasPrefix(contentType, "image/") {
			return fmt.Errorf("the file does not look like an image (detected content type: %s)", contentType)
		}

		resp, err := postUpload(cfg, filePath, fileName, contentType, agentName, strings.TrimSpace(uploadAlt))
		if err != nil {
			return err
		}

		fmt.Println(resp.Markdown)
		return nil
	},
}

// postUpload sends the multipart upload request and decodes the reply.
// Any non-success status is fatal with the server-provided message; the
// CLI never retries.
func postUpload(cfg *cliconfig.Config, filePath, fileName, contentType, agentName, alt string) (*uploadResponse, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.WriteField("agentName", agentName); err != nil {
		return nil, err
	}
	if alt != "" {
		if err := writer.WriteField("alt", alt); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, cfg.API+"/api/cli/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.Token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("unexpected response from server: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != "" {
			return nil, fmt.Errorf("%s", decoded.Error)
		}
		return nil, fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}

	return &decoded, nil
}

func init() {
	loginCmd.Flags().StringVar(&loginAPI, "api", "", "API origin, e.g. https://images.example.com")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "CLI bearer token")
	loginCmd.Flags().StringVar(&loginAgent, "agent", "", "Default agent name")
	authCmd.AddCommand(loginCmd)

	uploadCmd.Flags().StringVar(&uploadAgent, "agent", "", "Agent name (defaults to the configured default)")
	uploadCmd.Flags().StringVar(&uploadAlt, "alt", "", "Markdown alt text")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(uploadCmd)
}
