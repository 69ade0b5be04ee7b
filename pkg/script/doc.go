/*
Package script normalizes fragment scripts of the four supported calling
conventions (versions 3 to 6) into one uniform capability set.

Every raw script is wrapped by exactly one variant constructor; the engine only
ever talks to the resulting Adapted value:

	adapted := script.Adapt(raw, script.Env{Routes: manifest, History: history})
	err := adapted.Render(ctx, el, state)

Missing optional methods degrade gracefully: hydration falls back to render,
while unmount, state-change and status handlers become no-ops.
*/
package script
