// Package platform is the host side of the fabric core. It mounts the
// mutation lists the scheduler delivers onto a tree of host views, mirrors
// them to native code over a method channel, and routes native view events
// back as prop patches.
//
// A typical wiring:
//
//	views := platform.NewMountingManager(platform.MountingOptions{
//		Views:   platform.DefaultViewRegistry(),
//		Channel: platform.NewMethodChannel(platform.MountingChannel),
//		OnPropsChanged: scheduler.UpdateNodeProps,
//	})
//	defer scheduler.SetDelegate(views)()
package platform
