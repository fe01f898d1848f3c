package generator

import (
	"fmt"

	"github.com/shouni/headshot-studio/pkg/domain"
)

const promptTemplate = `Transform the person in this photo into a professional LinkedIn headshot.
Style: %s.
Details:
- Keep the person's facial features, hairstyle, and eyewear (glasses) exactly as they are in the original photo to maintain identity.
- Change the attire to high-end business attire (suit, blazer, or professional shirt).
- Use a professional, clean background like a modern office with soft bokeh (blurred background) or a solid studio backdrop.
- Enhance the lighting to look like a professional studio setup.
- Ensure a photorealistic, high-quality result suitable for a corporate profile.
- The person should have a friendly, confident, and professional expression.`

// BuildPrompt はスタイル名を埋め込んだ指示文を返します。
func BuildPrompt(style domain.Style) string {
	return fmt.Sprintf(promptTemplate, style)
}
