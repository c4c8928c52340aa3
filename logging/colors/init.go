package colors

// init checks the terminal for ANSI support. Unix terminals support it by default, Windows consoles need a kernel call.
func init() {
	EnableColor()
}
