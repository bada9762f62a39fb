package resource

import (
	"net/url"
	"strings"
)

const (
	IntegrationServicePath = "service/com.ibm.rqm.integration.service.IIntegrationService/"
	ResourcesPath          = IntegrationServicePath + "resources/"
	AttachmentServicePath  = "service/com.ibm.rqm.planning.service.internal.rest.IAttachmentRestService/"
)

// FeedURI is the listing of resourceType in projectArea.
func FeedURI(serverURL, projectArea, resourceType string) string {
	return serverURL + ResourcesPath + url.PathEscape(projectArea) + "/" + resourceType
}

// AllProjectsFeedURI is the listing of resourceType across project areas.
func AllProjectsFeedURI(serverURL, resourceType string) string {
	return serverURL + ResourcesPath + resourceType
}

func URI(serverURL, projectArea, resourceType, id string) string {
	return FeedURI(serverURL, projectArea, resourceType) + "/" + id
}

func HistoryURI(serverURL, projectArea, resourceType, id string) string {
	return serverURL + IntegrationServicePath + "history?resourceId=resources/" +
		url.PathEscape(projectArea) + "/" + resourceType + "/" + id
}

func AttachmentServiceURI(serverURL, id string) string {
	return serverURL + AttachmentServicePath + id
}

// EncodeSegmentedID form-encodes each slash separated segment of id.
func EncodeSegmentedID(id string) string {
	segments := strings.Split(id, "/")
	for i, s := range segments {
		segments[i] = url.QueryEscape(s)
	}
	return strings.Join(segments, "/")
}
