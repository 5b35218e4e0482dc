package testutil

// Ptr returns a pointer to v. Config fixtures use it for optional fields:
//
//	testutil.Ptr(float32(2)) // *float32
//	testutil.Ptr(100)        // *int
func Ptr[T any](v T) *T { return &v }
