// Package scene describes what is drawn: render objects with guarded
// transforms, per-object render state, a camera, and builders that assemble
// them.
//
// Render state is data. A floor tile that should hide its front faces carries
// [CullFront] in its [RenderState]; the renderer evaluates the mode when it
// draws the object. Nothing in a scene runs code around a draw call.
//
// The default scene is a six-tile room around the spring rig:
//
//	floor    y = -2   cull none
//	ceiling  y = +2   cull front
//	wall     z = -2   cull front
//	wall     z = +2   cull back
//	wall     x = +2   cull back
//	wall     x = -2   cull front
package scene
