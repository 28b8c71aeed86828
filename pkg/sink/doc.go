// Package sink delivers simulation frames to outside consumers.
//
// Every sink implements [sim.Publisher] and can be handed to
// [sim.NewMonitor]:
//
//	w := sink.NewJSONWriter(os.Stdout)
//	pub, err := sink.NewRedisPublisher(ctx, "redis://localhost:6379/0", "roundabout:frames")
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//	mon := sim.NewMonitor(s, 0, w, pub)
//
// [JSONWriter] writes newline-delimited JSON, one frame per line.
// [RedisPublisher] publishes the same JSON on a Redis pub/sub channel so
// several viewers can follow one simulation.
package sink
