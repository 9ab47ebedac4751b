package security

import "testing"

func TestValidateEndpointURL_Invalid(t *testing.T) {
	cases := []string{
		"ftp://example.com/hook",
		"https://localhost/hook",
		"http://127.0.0.1:8080/hook",
		"http://10.0.0.5/hook",
		"http://169.254.169.254/latest/meta-data",
		"http://0.0.0.0/hook",
		"http://metadata.google.internal/",
		"https:///nohost",
	}
	for _, u := range cases {
		if err := ValidateEndpointURL(u); err == nil {
			t.Errorf("Expected %s to be rejected", u)
		}
	}
}
