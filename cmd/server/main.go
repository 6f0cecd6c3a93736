package main

import "racingplate/internal/app"

// @title           Racing Plate API
// @version         1.0
// @description     Game backend: auth, sessions, leaderboard, media uploads.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
