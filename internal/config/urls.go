// Package config resolves which namespaces and ingress hosts a collection
// run should cover, either from explicit flag values or from a urls.json
// file.
package config

import (
	"encoding/json"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// IngressNamespace is always added to the monitored set so the ingress
// controller's own metrics stay collectable even when no config entry names
// its namespace.
const IngressNamespace = "ingress-nginx"

// Fallbacks used when neither explicit flags nor a urls file are supplied.
var (
	DefaultNamespaces = []string{"default", IngressNamespace}
	DefaultHosts      = []string{"foo.localhost", "bar.localhost"}
)

// URLEntry is one element of the urls.json config file.
type URLEntry struct {
	Namespace string `json:"namespace,omitempty"`
	URL       string `json:"url,omitempty"`
}

// LoadURLsFile derives namespace and host lists from a urls.json file. Every
// present namespace is collected once in first-seen order, plus
// IngressNamespace. Hosts are the authority components of the entries' URLs
// in entry order; entries without a host-bearing URL are skipped.
func LoadURLsFile(path string) (namespaces, hosts []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading urls config")
	}

	var entries []URLEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, errors.Wrapf(err, "parsing urls config %s", path)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.Namespace != "" && !seen[entry.Namespace] {
			seen[entry.Namespace] = true
			namespaces = append(namespaces, entry.Namespace)
		}
		if entry.URL == "" {
			continue
		}
		parsed, err := url.Parse(entry.URL)
		if err != nil || parsed.Host == "" {
			continue
		}
		hosts = append(hosts, parsed.Host)
	}

	if !seen[IngressNamespace] {
		namespaces = append(namespaces, IngressNamespace)
	}
	return namespaces, hosts, nil
}

// Resolve determines the namespace and host lists for a run. Explicit
// comma-separated flag values fully replace anything derived from the urls
// file; a urls file that does not exist is treated as absent, not as an
// error. With no source at all the defaults apply.
func Resolve(explicitNamespaces, explicitHosts, urlsFile string) (namespaces, hosts []string, err error) {
	fileNamespaces, fileHosts := DefaultNamespaces, DefaultHosts
	if urlsFile != "" {
		if _, statErr := os.Stat(urlsFile); statErr == nil {
			fileNamespaces, fileHosts, err = LoadURLsFile(urlsFile)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	namespaces = fileNamespaces
	if explicitNamespaces != "" {
		namespaces = splitList(explicitNamespaces)
	}
	hosts = fileHosts
	if explicitHosts != "" {
		hosts = splitList(explicitHosts)
	}
	return namespaces, hosts, nil
}

// splitList splits a comma-separated flag value, trimming whitespace around
// each element.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
