// Command livecheck runs a webcam liveness check: blink, open mouth, turn
// the head, and keep the best frontal frame.
package main

func main() {
	Execute()
}
