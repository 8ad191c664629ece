package loader

import (
	"strings"

	"github.com/kolah/portico/internal/document"
	"github.com/kolah/portico/internal/model"
)

// ServerURLs derives the candidate base URLs for a document. Each
// source is consulted only when the previous one yielded nothing:
// the servers array, the x-api-definition endpoints extension
// (external before internal), then one URL per scheme for Swagger 2.0
// documents that declare a host. An empty result is legitimate; the
// caller decides on a final fallback.
func ServerURLs(doc *document.Document) []string {
	if urls := standardServers(doc); len(urls) > 0 {
		return urls
	}
	if urls := extensionEndpoints(doc); len(urls) > 0 {
		return urls
	}
	return swaggerHostURLs(doc)
}

func standardServers(doc *document.Document) []string {
	servers, ok := doc.Lookup("servers")
	if !ok {
		return nil
	}

	var urls []string
	for _, server := range document.Items(servers) {
		node, ok := document.MapGet(server, "url")
		if !ok {
			continue
		}
		if url, ok := document.StringValue(node); ok && url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

func extensionEndpoints(doc *document.Document) []string {
	endpoints, ok := doc.Lookup("x-api-definition", "endpoints")
	if !ok {
		return nil
	}

	var urls []string
	for _, group := range []string{"external", "internal"} {
		node, ok := document.MapGet(endpoints, group)
		if !ok {
			continue
		}
		for _, entry := range document.Entries(node) {
			if url, ok := document.StringValue(entry.Value); ok && url != "" {
				urls = append(urls, url)
			}
		}
	}
	return urls
}

func swaggerHostURLs(doc *document.Document) []string {
	host := lookupString(doc, "host")
	if host == "" {
		return nil
	}

	// The default applies only when the schemes key is absent; an empty
	// list yields no URLs.
	schemes := []string{"https"}
	if node, ok := doc.Lookup("schemes"); ok {
		schemes = nil
		for _, item := range document.Items(node) {
			if scheme, ok := document.StringValue(item); ok && scheme != "" {
				schemes = append(schemes, scheme)
			}
		}
	}

	basePath := lookupString(doc, "basePath")
	if basePath == "" {
		basePath = "/"
	}

	urls := make([]string, 0, len(schemes))
	for _, scheme := range schemes {
		urls = append(urls, scheme+"://"+host+basePath)
	}
	return urls
}

// BasePath returns the path prefix the API is served under: the path
// portion of the first resolved server URL when it has one, otherwise
// the document's raw basePath field.
func BasePath(doc *document.Document) string {
	if urls := ServerURLs(doc); len(urls) > 0 {
		if _, rest, found := strings.Cut(urls[0], "://"); found {
			if _, path, ok := strings.Cut(rest, "/"); ok {
				return "/" + path
			}
		}
	}

	if base := lookupString(doc, "basePath"); base != "" {
		return base
	}
	return "/"
}

// Info summarizes a document for presentation and mounting.
func Info(doc *document.Document, name string) model.APIInfo {
	info := model.APIInfo{
		Name:     name,
		Title:    name,
		BasePath: BasePath(doc),
		Servers:  ServerURLs(doc),
	}

	if node, ok := doc.Lookup("info"); ok {
		if titleNode, ok := document.MapGet(node, "title"); ok {
			info.Title, _ = document.StringValue(titleNode)
		}
		info.Version = stringField(node, "version")
		info.Description = stringField(node, "description")
	}

	return info
}

func lookupString(doc *document.Document, key string) string {
	node, ok := doc.Lookup(key)
	if !ok {
		return ""
	}
	s, _ := document.StringValue(node)
	return s
}
