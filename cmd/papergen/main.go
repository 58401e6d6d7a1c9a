package main

import "github.com/kart-io/papergen/cmd/papergen/app"

func main() {
	app.NewApp().Run()
}
