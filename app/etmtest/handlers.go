package etmtest

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

var webIDField = regexp.MustCompile(`webId='([0-9]+)'`)

type feedEntry struct {
	id       string
	title    string
	archived bool
	purged   bool
}

func (s *Server) authRequired(c *gin.Context) {
	c.String(http.StatusOK, "authrequired")
}

func (s *Server) authFailed(c *gin.Context) {
	c.String(http.StatusOK, "authfailed")
}

func (s *Server) identity(c *gin.Context) {
	if s.opts.BasicAuth {
		if !s.validBasic(c) {
			c.Header("WWW-Authenticate", `Basic realm="Jazz"`)
			c.Status(http.StatusUnauthorized)
			return
		}
		c.String(http.StatusOK, Username)
		return
	}

	if !s.validSession(c) {
		c.Redirect(http.StatusFound, ContextRoot+"/auth/authrequired")
		return
	}
	c.String(http.StatusOK, Username)
}

func (s *Server) securityCheck(c *gin.Context) {
	if c.PostForm("j_username") != Username || c.PostForm("j_password") != Password {
		c.Redirect(http.StatusFound, ContextRoot+"/auth/authfailed")
		return
	}

	session := newUUID()

	s.mu.Lock()
	s.sessions[session] = true
	s.mu.Unlock()

	http.SetCookie(c.Writer, &http.Cookie{Name: sessionName, Value: session, Path: ContextRoot})
	c.Redirect(http.StatusFound, ContextRoot+"/authenticated/identity")
}

func (s *Server) initializationData(c *gin.Context) {
	c.String(http.StatusOK, "{}")
}

func (s *Server) logout(c *gin.Context) {
	if cookie, err := c.Cookie(sessionName); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie)
		s.mu.Unlock()
	}
	c.Status(http.StatusOK)
}

// authenticate applies the injected failures and rejects requests without a
// live session the way the server does for form login.
func (s *Server) authenticate(c *gin.Context) {
	s.mu.Lock()
	if s.expire > 0 {
		s.expire--
		s.sessions = make(map[string]bool)
		s.mu.Unlock()
		c.Header(authHeader, "authrequired")
		c.AbortWithStatus(http.StatusOK)
		return
	}
	if s.failures > 0 {
		s.failures--
		status := s.failStatus
		s.mu.Unlock()
		c.String(status, "injected failure")
		c.Abort()
		return
	}
	s.mu.Unlock()

	ok := s.validSession(c)
	if s.opts.BasicAuth {
		ok = s.validBasic(c)
	}
	if !ok {
		c.Header(authHeader, "authrequired")
		c.AbortWithStatus(http.StatusOK)
		return
	}

	c.Next()
}

func (s *Server) validBasic(c *gin.Context) bool {
	user, pass, ok := c.Request.BasicAuth()
	return ok && user == Username && pass == Password
}

func (s *Server) validSession(c *gin.Context) bool {
	cookie, err := c.Cookie(sessionName)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[cookie]
}

func (s *Server) listProjects(c *gin.Context) {
	base := s.URL() + strings.TrimPrefix(integrationService, "/") + "/projects/"

	entries := make([]feedEntry, 0, len(s.opts.Projects))
	for _, p := range s.opts.Projects {
		entries = append(entries, feedEntry{id: base + url.PathEscape(p), title: p})
	}

	c.Data(http.StatusOK, "application/atom+xml", renderFeed(entries, ""))
}

func (s *Server) listResources(c *gin.Context) {
	project, resourceType := c.Param("project"), c.Param("type")
	includeArchived := c.Query("includeArchived") == "true"

	var webID int
	if m := webIDField.FindStringSubmatch(c.Query("fields")); m != nil {
		webID, _ = strconv.Atoi(m[1])
	}
	byUUID := c.Query("metadata") == "UUID"

	s.mu.Lock()
	var entries []feedEntry
	for _, r := range s.resources[key(project, resourceType)] {
		if (r.Archived || r.Purged) && !includeArchived {
			continue
		}
		if webID > 0 && r.WebID != webID {
			continue
		}
		id := s.resourceURI(project, resourceType, r.ID)
		if byUUID && r.UUID != "" {
			id = r.UUID
		}
		entries = append(entries, feedEntry{id: id, title: r.ID, archived: r.Archived, purged: r.Purged})
	}
	s.mu.Unlock()

	size := s.opts.PageSize
	if size <= 0 || len(entries) <= size {
		c.Data(http.StatusOK, "application/atom+xml", renderFeed(entries, ""))
		return
	}

	lastPage := (len(entries) + size - 1) / size
	page := 1
	if p := c.Query("page"); p != "" {
		if c.Query("token") != s.token {
			c.String(http.StatusBadRequest, "invalid token")
			return
		}
		page, _ = strconv.Atoi(p)
	}
	if page < 1 || page > lastPage {
		c.Data(http.StatusOK, "application/atom+xml", renderFeed(nil, ""))
		return
	}

	last := s.URL() + strings.TrimPrefix(integrationService, "/") + "/resources/" + url.PathEscape(project) + "/" + resourceType +
		"?token=" + s.token + "&page=" + strconv.Itoa(lastPage)

	start := (page - 1) * size
	end := min(start+size, len(entries))

	c.Data(http.StatusOK, "application/atom+xml", renderFeed(entries[start:end], last))
}

func (s *Server) getResource(c *gin.Context) {
	s.mu.Lock()
	r := s.find(c.Param("project"), c.Param("type"), c.Param("id"))
	var xml string
	if r != nil {
		xml = r.XML
	}
	s.mu.Unlock()

	if r == nil {
		c.String(http.StatusNotFound, "resource not found")
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(xml))
}

func (s *Server) putResource(c *gin.Context) {
	body, err := readBody(c)
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		c.String(http.StatusBadRequest, "missing resource content")
		return
	}

	s.mu.Lock()
	created := s.put(c.Param("project"), c.Param("type"), c.Param("id"), string(body))
	s.mu.Unlock()

	if created {
		c.Status(http.StatusCreated)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) deleteResource(c *gin.Context) {
	project, resourceType, id := c.Param("project"), c.Param("type"), c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(project, resourceType, id)
	if r == nil {
		c.String(http.StatusNotFound, "resource not found")
		return
	}

	if c.Query("deleteArchived") != "true" {
		r.Archived = true
		c.Status(http.StatusOK)
		return
	}
	if !r.Archived && !r.Purged {
		c.String(http.StatusConflict, "resource is not archived")
		return
	}

	s.remove(project, resourceType, id)
	c.Status(http.StatusOK)
}

func (s *Server) createAttachment(c *gin.Context) {
	if c.Param("type") != "attachment" {
		c.String(http.StatusMethodNotAllowed, "unsupported resource type")
		return
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.String(http.StatusBadRequest, "invalid multipart body")
		return
	}

	var (
		filename string
		content  []byte
	)
	for _, files := range c.Request.MultipartForm.File {
		if len(files) == 0 {
			continue
		}
		f, err := files[0].Open()
		if err != nil {
			c.String(http.StatusBadRequest, "unreadable file part")
			return
		}
		content, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			c.String(http.StatusBadRequest, "unreadable file part")
			return
		}
		filename = files[0].Filename
		break
	}
	if filename == "" {
		c.String(http.StatusBadRequest, "missing file part")
		return
	}

	s.mu.Lock()
	s.attachments++
	webID := s.attachments
	id := strconv.Itoa(webID)
	s.put(c.Param("project"), "attachment", id, attachmentXML(webID, filename))
	r := s.find(c.Param("project"), "attachment", id)
	r.WebID = webID
	r.UUID = newUUID()
	r.Content = content
	s.mu.Unlock()

	c.Header("Content-Location", id)
	c.Status(http.StatusCreated)
}

func (s *Server) getAttachmentContent(c *gin.Context) {
	s.mu.Lock()
	r := s.findAttachment(c.Param("id"))
	var content []byte
	if r != nil {
		content = r.Content
	}
	s.mu.Unlock()

	if r == nil {
		c.String(http.StatusNotFound, "attachment not found")
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", content)
}

// history lists one entry per revision of resources/{project}/{type}/{id}.
func (s *Server) history(c *gin.Context) {
	parts := strings.Split(strings.TrimPrefix(c.Query("resourceId"), "resources/"), "/")
	if len(parts) != 3 {
		c.String(http.StatusBadRequest, "invalid resourceId")
		return
	}

	s.mu.Lock()
	r := s.find(parts[0], parts[1], parts[2])
	var revisions int
	if r != nil {
		revisions = len(r.Revisions)
	}
	s.mu.Unlock()

	if r == nil {
		c.String(http.StatusNotFound, "resource not found")
		return
	}

	entries := make([]feedEntry, 0, revisions)
	for i := revisions; i > 0; i-- {
		entries = append(entries, feedEntry{id: "urn:history:" + strconv.Itoa(i), title: "Revision " + strconv.Itoa(i)})
	}
	c.Data(http.StatusOK, "application/atom+xml", renderFeed(entries, ""))
}

func (s *Server) resourceURI(project, resourceType, id string) string {
	return s.URL() + strings.TrimPrefix(integrationService, "/") + "/resources/" + url.PathEscape(project) + "/" + resourceType + "/" + id
}

func renderFeed(entries []feedEntry, lastHref string) []byte {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom" xmlns:qm="http://jazz.net/xmlns/alm/qm/v0.1/">` + "\n")
	buf.WriteString("  <title>Integration service feed</title>\n")
	if lastHref != "" {
		fmt.Fprintf(&buf, "  <link rel=\"last\" href=\"%s\"/>\n", html.EscapeString(lastHref))
	}
	for _, e := range entries {
		buf.WriteString("  <entry>\n")
		fmt.Fprintf(&buf, "    <id>%s</id>\n", html.EscapeString(e.id))
		fmt.Fprintf(&buf, "    <title>%s</title>\n", html.EscapeString(e.title))
		if e.archived {
			buf.WriteString("    <qm:archived>true</qm:archived>\n")
		}
		if e.purged {
			buf.WriteString("    <qm:purged>true</qm:purged>\n")
		}
		buf.WriteString("  </entry>\n")
	}
	buf.WriteString("</feed>\n")

	return buf.Bytes()
}

func attachmentXML(webID int, filename string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ns2:attachment xmlns:ns2="http://jazz.net/xmlns/alm/qm/v0.1/" xmlns:ns4="http://purl.org/dc/elements/1.1/">
  <ns2:webId>%d</ns2:webId>
  <ns4:title>%s</ns4:title>
</ns2:attachment>`, webID, html.EscapeString(filename))
}

// readBody drains the request body and puts it back for later handlers.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, err
}
