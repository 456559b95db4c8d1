// Package viz draws a scene into a terminal.
//
// [Canvas] is a braille dot buffer. [Renderer] projects every visible object
// of a [scene.Scene] through a perspective camera built with mgl64 and draws
// its wireframe mesh. Cull modes are evaluated per object against the camera
// position, so a floor tile marked cull=front disappears when its front
// faces the viewer.
package viz
