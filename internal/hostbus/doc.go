// Package hostbus carries requests between the call bridge and a host.
//
// [Loopback] is an in-process bus with one FIFO queue and worker per
// channel. It implements ntcall.Emitter on the bridge side and forwards host
// replies and pushes to a bound [Sink]:
//
//	bus := hostbus.NewLoopback(host, hostbus.WithLogger(logger))
//	bridge := ntcall.New(bus, ntcall.WithLogger(logger))
//	bus.Bind(bridge)
//	if err := bus.Start(ctx); err != nil {
//	    return err
//	}
//	defer bus.Stop()
//
// [ScriptedHost] is a [Host] that answers from a YAML scenario, for the
// command line and for tests.
package hostbus
