package knowledge

import "testing"

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantHost string
		wantPort int
		wantTLS  bool
		wantErr  bool
	}{
		{"empty defaults", "", "127.0.0.1", 6334, false, false},
		{"plain http", "http://qdrant.internal:6334", "qdrant.internal", 6334, false, false},
		{"https", "https://qdrant.example.com:443", "qdrant.example.com", 443, true, false},
		{"no scheme", "10.0.0.5:6334", "10.0.0.5", 6334, false, false},
		{"no port", "http://qdrant.internal", "qdrant.internal", 6334, false, false},
		{"bad port", "http://host:notaport", "", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, tls, err := parseEndpoint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseEndpoint(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if host != tt.wantHost || port != tt.wantPort || tls != tt.wantTLS {
				t.Errorf("parseEndpoint(%q) = (%q, %d, %v), want (%q, %d, %v)",
					tt.in, host, port, tls, tt.wantHost, tt.wantPort, tt.wantTLS)
			}
		})
	}
}

func TestSearchNilClient(t *testing.T) {
	var c *Client
	facts, err := c.Search(t.Context(), "anything", 5)
	if err != nil {
		t.Fatalf("nil client search returned error: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected empty facts, got %d", len(facts))
	}
}
