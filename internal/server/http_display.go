package server

import (
	"fmt"

	"resumelens/internal/utils"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displaySessionInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available pages:")
	fmt.Println("  GET  /                - Home")
	fmt.Println("  GET  /login           - Sign in")
	fmt.Println("  GET  /register        - Create an account")
	fmt.Println("  GET  /analyze         - Upload and review a resume (sign-in required)")
	fmt.Println("  GET  /jobs/search     - Find matching jobs (sign-in required)")
	fmt.Println("  GET  /courses/{field} - Course recommendations (sign-in required)")
	fmt.Println("  GET  /profile         - Profile and analysis history (sign-in required)")
	fmt.Println("  GET  /health          - Health check")
	fmt.Println("  GET  /stats           - Server statistics")
}

func (s *Server) displaySessionInfo() {
	cfg := s.AppConfig.Session
	fmt.Printf("Backend API: %s\n", s.AppConfig.Backend.BaseURL)
	fmt.Printf("Sessions: cookie %q, %s store, TTL %s\n", cfg.CookieName, cfg.Store, cfg.TTL)
	if cfg.RefreshInterval > 0 {
		fmt.Printf("  - Background token refresh every %s\n", cfg.RefreshInterval)
	} else {
		fmt.Println("  - Background token refresh: DISABLED")
	}
	if !cfg.Secure {
		fmt.Println("WARNING: Session cookies are not marked Secure!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Upload limit: %s (request limit %s)\n",
			utils.FormatFileSize(s.MaxFileSize), utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.BySession {
			fmt.Println("  - Per session rate limiting enabled (per IP without a valid session)")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
