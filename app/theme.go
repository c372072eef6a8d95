package main

import "github.com/maxence-charriere/go-app/v10/pkg/app"

// applyTheme flips the document-level attribute the stylesheet keys off.
func applyTheme(theme string) {
	doc := app.Window().Get("document")
	if !doc.Truthy() {
		return
	}
	doc.Get("documentElement").Call("setAttribute", "data-theme", theme)
}

func otherTheme(theme string) string {
	if theme == "dark" {
		return "light"
	}
	return "dark"
}
