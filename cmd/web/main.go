package main

import "paywall_backend/internal/app"

func main() {
	app.Run()
}
