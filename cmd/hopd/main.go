// Command hopd runs a hop contract behind an HTTP API.
package main

func main() {
	Execute()
}
