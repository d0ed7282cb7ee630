package generator

import (
	"fmt"
	"strconv"
	"strings"

	"superloja-social/internal/domain"
)

// brandVoice — постоянная системная инструкция с голосом бренда.
const brandVoice = `Você é o social media da SuperLoja, uma loja online em Angola.
Escreva em português de Angola, com tom próximo, alegre e confiável.
Use emojis com moderação. Preços sempre em Kwanzas (Kz).
Mencione que a entrega é feita em Luanda e o contacto pelo WhatsApp.
Nunca invente características que não foram fornecidas.`

// PromptContext — типизированные данные для построения промпта.
type PromptContext struct {
	PostType domain.PostType
	Platform domain.Platform
	Product  *domain.Product
}

// Prompt — неизменяемая пара системной и пользовательской инструкций.
type Prompt struct {
	system string
	user   string
}

// System возвращает системную инструкцию.
func (p Prompt) System() string { return p.system }

// User возвращает пользовательскую инструкцию.
func (p Prompt) User() string { return p.user }

// ContextFromPost собирает PromptContext из поста.
func ContextFromPost(post domain.Post) PromptContext {
	return PromptContext{PostType: post.PostType, Platform: post.Platform, Product: post.Product}
}

// BuildPrompt строит промпт для типа поста.
func BuildPrompt(pc PromptContext) Prompt {
	var b strings.Builder
	switch pc.PostType {
	case domain.PostTypeProduct:
		if pc.Product != nil && strings.TrimSpace(pc.Product.Name) != "" {
			fmt.Fprintf(&b, "Crie um post para vender o produto \"%s\"", strings.TrimSpace(pc.Product.Name))
			if pc.Product.Price > 0 {
				fmt.Fprintf(&b, " que custa %s", FormatKwanza(pc.Product.Price))
			}
			b.WriteString(".\n")
		} else {
			b.WriteString("Crie um post para vender os produtos da SuperLoja.\n")
		}
		b.WriteString("Destaque os benefícios e termine com uma chamada clara para comprar agora.")
	case domain.PostTypePromotional:
		b.WriteString("Crie um post promocional com senso de urgência: oferta por tempo limitado, stock a acabar.\n")
		if pc.Product != nil && strings.TrimSpace(pc.Product.Name) != "" {
			fmt.Fprintf(&b, "Produto em destaque: %s", strings.TrimSpace(pc.Product.Name))
			if pc.Product.Price > 0 {
				fmt.Fprintf(&b, " por %s", FormatKwanza(pc.Product.Price))
			}
			b.WriteString(".\n")
		}
		b.WriteString("Incentive o cliente a não perder a oportunidade.")
	default:
		b.WriteString("Crie um post de engajamento que termine com uma pergunta para os seguidores responderem nos comentários.\n")
		b.WriteString("O tema deve estar ligado a compras, tecnologia ou dia a dia em Angola.")
	}
	b.WriteString("\nMáximo de 3 parágrafos curtos.")
	if pc.Platform == domain.PlatformInstagram {
		b.WriteString("\nInclua 5 hashtags relevantes no final, incluindo #SuperLoja e #Angola.")
	}
	return Prompt{system: brandVoice, user: b.String()}
}

// FormatKwanza форматирует цену как "15.000 Kz".
func FormatKwanza(price float64) string {
	units := strconv.FormatInt(int64(price+0.5), 10)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + " Kz"
}
