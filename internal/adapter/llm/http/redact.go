package http

import (
	"fmt"
	"regexp"
)

// MaxLoggedResponseLength is the maximum length of response text to include
// in logs and error messages.
const MaxLoggedResponseLength = 200

// TruncateForLogging limits a response string for safe logging. Responses
// longer than MaxLoggedResponseLength keep a truncation indicator with the
// original length.
func TruncateForLogging(response string) string {
	if len(response) <= MaxLoggedResponseLength {
		return response
	}
	return response[:MaxLoggedResponseLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(response))
}

// secretParamPatterns match sensitive query parameters that can leak into
// error messages through request URLs.
var secretParamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`key=([^&"\s]+)`),
	regexp.MustCompile(`apiKey=([^&"\s]+)`),
	regexp.MustCompile(`api_key=([^&"\s]+)`),
	regexp.MustCompile(`token=([^&"\s]+)`),
	regexp.MustCompile(`access_token=([^&"\s]+)`),
}

// RedactURLSecrets redacts API keys and tokens from URLs embedded in text.
//
// Example:
//
//	input:  "https://api.example.com/endpoint?key=secret123&foo=bar"
//	output: "https://api.example.com/endpoint?key=[REDACTED]&foo=bar"
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, re := range secretParamPatterns {
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			for i, c := range match {
				if c == '=' {
					return match[:i] + "=[REDACTED]"
				}
			}
			return match
		})
	}
	return result
}

// RedactAPIKey shows only the last 4 characters of an API key.
func RedactAPIKey(key string) string {
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", key[len(key)-4:])
}
