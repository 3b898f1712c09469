package utils

import (
	"errors"
	"net/url"
	"strings"
)

// Parses a string of the form <scheme>://<host>:<port> and returns the
// host and port as a string, or an error if the string is not a valid URL.
// If the port is not specified, it defaults to 8080.
// The scheme must be "tcp", "http" or "https".
func ParseHttpUrl(urlstr string) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	switch uri.Scheme {
	case "tcp", "http", "https":
	default:
		return "", errors.New("Unsupported protocol: " + uri.Scheme)
	}

	if uri.Port() == "" {
		uri.Host += ":8080"
	}

	return uri.Host, nil
}

// Parses a string of the form <scheme>://<host>:<port> and returns the
// host and port as a string, or an error if the string is not a valid URL.
// If the port is not specified, it defaults to 9090.
// The scheme must be "tcp".
func ParseGrpcUrl(urlstr string) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	if uri.Scheme != "tcp" {
		return "", errors.New("Unsupported protocol: " + uri.Scheme)
	}

	if uri.Port() == "" {
		uri.Host += ":9090"
	}

	return uri.Host, nil
}

// Converts a listen or client URI into a base URL for HTTP requests.
// tcp:// is rewritten to http://, and the default port is applied.
func HttpBaseUrl(urlstr string) (string, error) {
	host, err := ParseHttpUrl(urlstr)
	if err != nil {
		return "", err
	}

	scheme := "http"
	if strings.HasPrefix(urlstr, "https://") {
		scheme = "https"
	}

	return scheme + "://" + host, nil
}
