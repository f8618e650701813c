package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"
)

//export tupledb_open_memory
func tupledb_open_memory(schema *C.char) C.int {
	handle, err := openMemory(C.GoString(schema))
	if err != nil {
		return -1
	}
	return C.int(handle)
}

//export tupledb_open_file
func tupledb_open_file(path *C.char) C.int {
	handle, err := openFile(C.GoString(path))
	if err != nil {
		return -1
	}
	return C.int(handle)
}

//export tupledb_close
func tupledb_close(handle C.int) {
	handles.remove(int(handle))
}

//export tupledb_execute
func tupledb_execute(handle C.int, query *C.char) *C.char {
	return C.CString(encode(execute(int(handle), C.GoString(query))))
}

//export tupledb_free
func tupledb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func main() {}
