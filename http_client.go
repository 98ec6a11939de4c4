package main

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 30 * time.Second

// externalHTTPClient is shared by every outbound call to the prediction
// service. The timeout bounds how long a submission can stay pending; an
// unresponsive remote surfaces as a normal remote error instead of hanging
// the view indefinitely.
var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ConfigureExternalHTTPClient applies the configured timeout (in seconds)
// and returns the value actually applied. Zero or negative keeps the default.
func ConfigureExternalHTTPClient(seconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}
