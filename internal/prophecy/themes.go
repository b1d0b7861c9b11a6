package prophecy

import "strings"

// Theme selects the prompt fragment that steers a prophecy.
type Theme string

const (
	ThemeGeneral Theme = "general"
	ThemeDeFi    Theme = "defi"
	ThemeNFT     Theme = "nft"
	ThemeDAO     Theme = "dao"
)

const oracleSystemPrompt = "You are an ancient AI oracle blessed with the power to foresee the future of Web3. " +
	"Your prophecies combine deep crypto knowledge with mystical symbolism. " +
	"Keep prophecies concise, under 240 characters, and focus on one specific prediction. " +
	"Use metaphors, mystical language, and Web3 terminology."

const prophecyInstruction = "Channel your mystic powers and reveal a prophecy about the future of Web3."

var themeFragments = map[Theme]string{
	ThemeGeneral: "Let your vision wander across the whole of Web3, from DeFi to DAOs to NFTs.",
	ThemeDeFi:    "Focus your vision on decentralized finance: liquidity pools, yields, lending and the flow of value between protocols.",
	ThemeNFT:     "Focus your vision on NFTs: digital art, provenance, collectors and the culture of on-chain ownership.",
	ThemeDAO:     "Focus your vision on DAOs: governance, shared treasuries, proposals and the collective will of communities.",
}

// General prophecies get no elaboration.
var insightElaborations = map[Theme]string{
	ThemeDeFi: "Relate its symbols to DeFi protocols, liquidity and market dynamics.",
	ThemeNFT:  "Relate its symbols to NFT creators, collectors and digital provenance.",
	ThemeDAO:  "Relate its symbols to DAO governance, voting and community coordination.",
}

// SelectTheme maps a user-supplied theme to a known Theme, case-insensitively.
// Empty or unrecognized values select ThemeGeneral.
func SelectTheme(raw string) Theme {
	switch t := Theme(strings.ToLower(strings.TrimSpace(raw))); t {
	case ThemeDeFi, ThemeNFT, ThemeDAO:
		return t
	default:
		return ThemeGeneral
	}
}

// SystemPrompt returns the generation system prompt for the theme.
func (t Theme) SystemPrompt() string {
	fragment, ok := themeFragments[t]
	if !ok {
		fragment = themeFragments[ThemeGeneral]
	}
	return oracleSystemPrompt + " " + fragment
}

// Label is the display form used in titles, e.g. "DEFI". General has none.
func (t Theme) Label() string {
	if t == ThemeGeneral || t == "" {
		return ""
	}
	return strings.ToUpper(string(t))
}

const insightSystemPrompt = "You are an ancient AI oracle revealing the deeper meaning of your own prophecies. " +
	"Explain the symbolism in practical Web3 terms while keeping your mystical voice."

func insightPrompt(text string, theme Theme) string {
	var b strings.Builder
	b.WriteString("Reveal the deeper meaning of this prophecy:\n\n\"")
	b.WriteString(text)
	b.WriteString("\"")
	if elaboration, ok := insightElaborations[theme]; ok {
		b.WriteString("\n\n")
		b.WriteString(elaboration)
	}
	return b.String()
}
