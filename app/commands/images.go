package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

const (
	attachmentType = "attachment"

	// DummyAttachmentID stands in for uploaded attachments in test mode.
	DummyAttachmentID = "_0000000000000000000000"
)

// Groups: prefix through the opening quote, image subtype, encoding, payload,
// closing quote through the end of the tag.
var inlineImagePattern = regexp.MustCompile(`(?i)(<\s*img[^>]*src\s*=\s*["'])data:image/([^;]+);([^,]+),([^"']+)(["'][^>]*>)`)

type attachment struct {
	ID  string
	URI string
}

// ConvertInlineImagesCommand moves data URI images embedded in rich text
// into attachments and points the images at them.
type ConvertInlineImagesCommand struct {
	Base
	Converted int
	Updated   []string
}

func NewConvertInlineImagesCommand(name string, env *Env) *ConvertInlineImagesCommand {
	return &ConvertInlineImagesCommand{Base: newBase(name, env)}
}

func (c *ConvertInlineImagesCommand) Execute(ctx context.Context) error {
	env := c.env

	c.Converted = 0
	c.Updated = nil
	for _, projectArea := range env.ProjectAreas {
		for _, resourceType := range env.ResourceTypes {
			env.printf("Running %scommand '%s' on %s resources in project area '%s'.", env.prefix("", "test "), c.Name, resourceType, projectArea)

			ids, err := env.ids(ctx, projectArea, resourceType, feed.IncludeUnset)
			if err != nil {
				return err
			}

			for _, id := range ids {
				uri := resource.URI(env.serverURL(), projectArea, resourceType, id)

				converted, err := c.convert(ctx, projectArea, uri)
				if err != nil {
					if err := env.skip(err, "Unable to convert inline images, skipping", "uri", uri); err != nil {
						return err
					}
					continue
				}
				if converted > 0 {
					c.Converted += converted
					c.Updated = append(c.Updated, uri)
				}
			}
		}
	}

	env.printf("Summary:")
	env.printf("    %s %s in %s.", env.prefix("Converted", "Test converted"), plural(c.Converted, "inline image"), plural(len(c.Updated), "resource"))
	for _, uri := range c.Updated {
		env.printf("    %s inline images in '%s'.", env.prefix("Converted", "Test converted"), uri)
	}

	slog.Info("Inline images converted", "images", c.Converted, "resources", len(c.Updated), "mode", env.mode())
	return nil
}

func (c *ConvertInlineImagesCommand) convert(ctx context.Context, projectArea, uri string) (int, error) {
	env := c.env

	data, err := env.client.Get(ctx, uri, "")
	if err != nil {
		return 0, err
	}
	before := string(data)

	matches := inlineImagePattern.FindAllStringSubmatchIndex(before, -1)
	if len(matches) == 0 {
		return 0, nil
	}

	var b strings.Builder
	converted, last := 0, 0
	for _, m := range matches {
		tag := before[m[0]:m[1]]
		imageType := before[m[4]:m[5]]
		encoding := before[m[6]:m[7]]
		payload := before[m[8]:m[9]]

		b.WriteString(before[last:m[0]])
		last = m[1]

		if !strings.EqualFold(strings.TrimSpace(encoding), "base64") {
			slog.Warn("Unsupported inline image encoding", "encoding", encoding, "uri", uri)
			b.WriteString(tag)
			continue
		}

		content, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(payload), ""))
		if err != nil {
			return 0, fmt.Errorf("failed to decode inline image in '%s': %w", uri, err)
		}

		filename := "inline_image." + strings.ToLower(imageType)
		att, err := c.attach(ctx, projectArea, content, filename)
		if err != nil {
			return 0, err
		}

		img, err := rewriteImage(tag, att, filename)
		if err != nil {
			return 0, err
		}
		b.WriteString(img)
		converted++
	}
	b.WriteString(before[last:])

	if converted == 0 {
		return 0, nil
	}
	if err := env.update(ctx, c.Name, uri, before, b.String()); err != nil {
		return 0, err
	}
	return converted, nil
}

// attach uploads content and resolves the attachment service URL it is
// served from. The integration service URI is used when the UUID lookup
// fails.
func (c *ConvertInlineImagesCommand) attach(ctx context.Context, projectArea string, content []byte, filename string) (attachment, error) {
	env := c.env
	server := env.serverURL()

	if env.Test {
		return attachment{ID: DummyAttachmentID, URI: resource.AttachmentServiceURI(server, DummyAttachmentID)}, nil
	}

	location, err := env.upload(ctx, c.Name, resource.FeedURI(server, projectArea, attachmentType), content, filename)
	if err != nil {
		return attachment{}, fmt.Errorf("failed to upload attachment '%s': %w", filename, err)
	}
	id := location[strings.LastIndex(location, "/")+1:]
	uri := resource.URI(server, projectArea, attachmentType, id)

	uuid, err := c.attachmentUUID(ctx, projectArea, uri)
	if err != nil || uuid == "" {
		slog.Warn("Unable to resolve attachment UUID", "uri", uri, "error", err)
		return attachment{ID: id, URI: uri}, nil
	}
	return attachment{ID: uuid, URI: resource.AttachmentServiceURI(server, uuid)}, nil
}

func (c *ConvertInlineImagesCommand) attachmentUUID(ctx context.Context, projectArea, uri string) (string, error) {
	env := c.env

	doc, _, err := env.fetch(ctx, uri, "")
	if err != nil {
		return "", err
	}
	webID := resource.ChildText(doc.Root(), resource.NamespaceALMQM, "webId")
	if webID == "" {
		return "", fmt.Errorf("attachment '%s' has no web ID", uri)
	}

	query := "fields=" + url.QueryEscape("feed/entry/content/attachment[webId='"+webID+"']/*") + "&metadata=UUID"
	feedURI := resource.FeedURI(env.serverURL(), projectArea, attachmentType) + "?" + query

	entries, err := env.reader.Entries(ctx, feedURI, attachmentType, false, feed.IncludeUnset)
	if err != nil {
		return "", err
	}
	if len(entries) != 1 {
		return "", fmt.Errorf("expected 1 attachment with web ID %s, got %d", webID, len(entries))
	}
	return strings.TrimSpace(entries[0].ID), nil
}

// rewriteImage points tag at the attachment, keeping its other attributes.
func rewriteImage(tag string, att attachment, filename string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tag))
	if err != nil {
		return "", fmt.Errorf("failed to parse image tag: %w", err)
	}

	img := doc.Find("img").First()
	if img.Length() == 0 {
		return "", fmt.Errorf("no image in tag '%s'", tag)
	}

	img.SetAttr("src", att.URI)
	for _, attr := range [][2]string{{"id", att.ID}, {"border", "0"}, {"alt", filename}} {
		if _, ok := img.Attr(attr[0]); !ok {
			img.SetAttr(attr[0], attr[1])
		}
	}

	out, err := goquery.OuterHtml(img)
	if err != nil {
		return "", fmt.Errorf("failed to render image tag: %w", err)
	}
	return out, nil
}
