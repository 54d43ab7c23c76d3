// Package landmarks talks to the face-mesh sidecar over a websocket: each
// frame goes out as a binary JPEG message and comes back as a JSON list of
// faces with their normalized landmark points.
package landmarks
