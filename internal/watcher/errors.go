package watcher

import (
	"fmt"
	"strings"
)

// FetchError reports a failed page retrieval. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports that a page did not contain the version marker.
type ParseError struct {
	Source string
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return "version marker not found"
	}
	return fmt.Sprintf("version marker not found in %s", e.Source)
}

// StoreError wraps a key-value read or write failure.
type StoreError struct {
	Op        string
	Namespace string
	Key       string
	Err       error
}

func (e *StoreError) Error() string {
	parts := []string{e.Op}
	if e.Namespace != "" {
		parts = append(parts, e.Namespace)
	}
	if e.Key != "" {
		parts = append(parts, e.Key)
	}
	return fmt.Sprintf("store %s: %v", strings.Join(parts, " "), e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotificationError reports a rejected notification.
type NotificationError struct {
	Channel    string
	StatusCode int
	Body       string
	Err        error
}

func (e *NotificationError) Error() string {
	channel := e.Channel
	if channel == "" {
		channel = "notification"
	}
	if e.StatusCode != 0 {
		body := strings.TrimSpace(e.Body)
		if body == "" {
			return fmt.Sprintf("%s rejected: status %d", channel, e.StatusCode)
		}
		return fmt.Sprintf("%s rejected: status %d: %s", channel, e.StatusCode, body)
	}
	return fmt.Sprintf("%s failed: %v", channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
