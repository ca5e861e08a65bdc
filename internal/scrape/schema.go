package scrape

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// videoListSchema validates the provider's video list payload before
// normalization. A payload that fails validation is treated as a provider
// error, not a partial result.
const videoListSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["videos"],
	"properties": {
		"videos": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["video_id", "account_id", "platform"],
				"properties": {
					"video_id": {"type": "string", "minLength": 1},
					"account_id": {"type": "string", "minLength": 1},
					"platform": {"type": "string", "minLength": 1},
					"title": {"type": "string"},
					"url": {"type": "string"},
					"media_url": {"type": "string"},
					"thumbnail_url": {"type": "string"},
					"uploaded_at": {"type": "string"},
					"views": {"type": "integer", "minimum": 0},
					"likes": {"type": "integer", "minimum": 0},
					"comments": {"type": "integer", "minimum": 0},
					"shares": {"type": "integer", "minimum": 0},
					"metrics_only": {"type": "boolean"}
				}
			}
		}
	}
}`

var compiledVideoListSchema = mustCompileSchema("videos.json", videoListSchema)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("invalid embedded schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// validatePayload checks a decoded JSON payload against the video list
// schema.
func validatePayload(payload any) error {
	if err := compiledVideoListSchema.Validate(payload); err != nil {
		return fmt.Errorf("malformed provider payload: %w", err)
	}
	return nil
}
