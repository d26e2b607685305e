package models

// Theme is the presentation preference persisted under the "theme" key
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultTheme is used when nothing (or garbage) is persisted
const DefaultTheme = ThemeDark

// Toggle flips between dark and light
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}
