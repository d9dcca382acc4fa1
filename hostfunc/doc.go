// Package hostfunc provides the host side of the script I/O bridge.
//
// Scripts have no implicit access to the outside world. The interpreter
// guest asks the host for two things by name through a [Registry]:
//
//   - puts: print values to the output stream, see [NewPuts]
//   - read: fetch a resource by path, see [Reader]
//
// [NewBridge] wires both:
//
//	reader, err := hostfunc.NewReader(hostfunc.ReaderConfig{})
//	if err != nil {
//	    return err
//	}
//	registry := hostfunc.NewBridge(os.Stdout, reader)
//
// # Read paths
//
// A [Reader] accepts three path forms:
//
//   - aoc://2022/5 or aoc:///2022/5, rewritten by [ResolveLocator] to the
//     puzzle input URL under the configured base
//   - http and https URLs, restricted to allowed hosts via [HTTPConfig]
//   - plain paths, read from read-only [Mount] points when any are set
//
// Content has trailing whitespace removed and is kept in a [ResourceCache]
// so repeated reads of the same input do not hit the network again.
package hostfunc
