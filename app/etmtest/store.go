package etmtest

import (
	"strings"

	"github.com/google/uuid"
)

// Resource is a stored integration service resource.
type Resource struct {
	ID       string
	XML      string
	Archived bool
	Purged   bool

	// UUID and WebID are only set on attachments.
	UUID    string
	WebID   int
	Content []byte

	// Revisions holds every XML body the resource has had, oldest first.
	Revisions []string
}

func key(project, resourceType string) string {
	return project + "/" + resourceType
}

// AddResource stores xml under id, replacing an existing resource.
func (s *Server) AddResource(project, resourceType, id, xml string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(project, resourceType, id, xml)
}

// Archive flags a stored resource as archived.
func (s *Server) Archive(project, resourceType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(project, resourceType, id); r != nil {
		r.Archived = true
	}
}

// Purge flags a stored resource as purged.
func (s *Server) Purge(project, resourceType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(project, resourceType, id); r != nil {
		r.Purged = true
	}
}

// Resource returns a copy of the stored resource.
func (s *Server) Resource(project, resourceType, id string) (Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(project, resourceType, id); r != nil {
		return *r, true
	}
	return Resource{}, false
}

// Resources returns copies of every stored resource of resourceType in
// insertion order.
func (s *Server) Resources(project, resourceType string) []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.resources[key(project, resourceType)]
	out := make([]Resource, 0, len(list))
	for _, r := range list {
		out = append(out, *r)
	}
	return out
}

func (s *Server) find(project, resourceType, id string) *Resource {
	for _, r := range s.resources[key(project, resourceType)] {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// put stores xml and reports whether the resource is new. Callers hold mu.
func (s *Server) put(project, resourceType, id, xml string) bool {
	if r := s.find(project, resourceType, id); r != nil {
		r.XML = xml
		r.Revisions = append(r.Revisions, xml)
		return false
	}

	k := key(project, resourceType)
	s.resources[k] = append(s.resources[k], &Resource{ID: id, XML: xml, Revisions: []string{xml}})
	return true
}

func (s *Server) remove(project, resourceType, id string) {
	k := key(project, resourceType)
	list := s.resources[k]
	for i, r := range list {
		if r.ID == id {
			s.resources[k] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (s *Server) findAttachment(attachmentUUID string) *Resource {
	for k, list := range s.resources {
		if !strings.HasSuffix(k, "/attachment") {
			continue
		}
		for _, r := range list {
			if r.UUID == attachmentUUID {
				return r
			}
		}
	}
	return nil
}

// newUUID returns an item UUID in the form the server hands out.
func newUUID() string {
	return "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:22]
}
