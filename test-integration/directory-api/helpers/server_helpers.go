package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/onsi/gomega"
	"github.com/spf13/viper"

	directoryapp "github.com/campuslink/campuslink-server/internal/app"
	"github.com/campuslink/campuslink-server/internal/config"
	"github.com/campuslink/campuslink-server/internal/directory"
)

// ServerTestHelper manages the directory API server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	opts       []directoryapp.DirectoryAppOptions
	baseURL    string
	httpClient *http.Client
	app        *directoryapp.DirectoryApp
}

// NewServerTestHelper creates a new server test helper. Extra options are
// passed to the app builder after the loaded configuration.
func NewServerTestHelper(ctx context.Context, configPath string, opts ...directoryapp.DirectoryAppOptions) *ServerTestHelper {
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		opts:       opts,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// StartServer builds the app and serves it on a free loopback port
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath), config.WithEnv(viper.New()))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts := append([]directoryapp.DirectoryAppOptions{directoryapp.WithConfig(cfg)}, s.opts...)
	app, err := directoryapp.NewDirectoryApp(s.ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = app.Stop(time.Second)
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.app = app
	s.baseURL = "http://" + listener.Addr().String()

	go func() {
		if err := app.Serve(listener); err != nil {
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer gracefully stops the directory API server
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// App returns the running app
func (s *ServerTestHelper) App() *directoryapp.DirectoryApp {
	return s.app
}

// WaitForServerReady waits for the server to report readiness
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 100*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// Get makes a GET request to path and returns the status code and body
func (s *ServerTestHelper) Get(path string) (int, []byte) {
	resp, err := s.httpClient.Get(s.baseURL + path)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return resp.StatusCode, body
}

// ListResponse is the body of GET /api/services
type ListResponse struct {
	Services []directory.ServiceRecord `json:"services"`
	Count    int                       `json:"count"`
}

// ListServices makes a GET request to /api/services with the given query
func (s *ServerTestHelper) ListServices(query url.Values) ListResponse {
	path := "/api/services"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	status, body := s.Get(path)
	gomega.Expect(status).To(gomega.Equal(http.StatusOK), string(body))

	var resp ListResponse
	gomega.Expect(json.Unmarshal(body, &resp)).To(gomega.Succeed())
	return resp
}

// GetService makes a GET request to /api/services/{id} and expects a record
func (s *ServerTestHelper) GetService(id string) directory.ServiceRecord {
	status, body := s.Get("/api/services/" + id)
	gomega.Expect(status).To(gomega.Equal(http.StatusOK), string(body))

	var rec directory.ServiceRecord
	gomega.Expect(json.Unmarshal(body, &rec)).To(gomega.Succeed())
	return rec
}

// GetBaseURL returns the base URL of the server
func (s *ServerTestHelper) GetBaseURL() string {
	return s.baseURL
}

// ConfigOptions holds the settings written by WriteConfigYAML
type ConfigOptions struct {
	SQLitePath     string
	PlacesEndpoint string
	PlacesAPIKey   string
	FreshnessTTL   string
}

// WriteConfigYAML writes a YAML configuration file for testing
func WriteConfigYAML(dir string, opts ConfigOptions) string {
	var b strings.Builder
	b.WriteString("server:\n  address: 127.0.0.1:0\n")

	if opts.SQLitePath != "" {
		fmt.Fprintf(&b, "storage:\n  type: sqlite\n  sqlite:\n    path: %s\n", opts.SQLitePath)
	} else {
		b.WriteString("storage:\n  type: memory\n")
	}

	if opts.PlacesAPIKey != "" || opts.PlacesEndpoint != "" {
		b.WriteString("places:\n")
		if opts.PlacesAPIKey != "" {
			fmt.Fprintf(&b, "  apiKey: %s\n", opts.PlacesAPIKey)
		}
		if opts.PlacesEndpoint != "" {
			fmt.Fprintf(&b, "  endpoint: %s\n", opts.PlacesEndpoint)
		}
	}

	if opts.FreshnessTTL != "" {
		fmt.Fprintf(&b, "freshness:\n  ttl: %s\n  fetchTimeout: 2s\n", opts.FreshnessTTL)
	}

	configPath := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(configPath, []byte(b.String()), 0600)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return configPath
}
