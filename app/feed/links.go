package feed

import (
	"regexp"
	"strconv"
)

var (
	tokenParamPattern = regexp.MustCompile(`.+[?&]token=(_[A-Za-z0-9\-_]{22})`)
	pageParamPattern  = regexp.MustCompile(`.+[?&]page=([0-9]+)`)
)

// LastLink is the pagination cursor carried by a feed's rel="last" link.
type LastLink struct {
	Token    string
	LastPage int
}

// ParseLastLink extracts the continuation token and last page number from
// href. A missing part is reported through the ok flags; the caller decides
// how to degrade.
func ParseLastLink(href string) (link LastLink, tokenOK, pageOK bool) {
	if m := tokenParamPattern.FindStringSubmatch(href); m != nil {
		link.Token = m[1]
		tokenOK = true
	}
	if m := pageParamPattern.FindStringSubmatch(href); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			link.LastPage = n
			pageOK = true
		}
	}
	return link, tokenOK, pageOK
}
