package imagesim

// Sample returns a small image with a few packages, classes and methods.
// Bag, OrderedCollection and Set all implement add:, and Orphan belongs to
// no package.
func Sample() *Image {
	im := NewImage()

	for _, p := range []string{"Kernel", "Collections", "Graphics"} {
		im.AddPackage(p)
	}

	im.AddClass("Kernel", "Object", "")
	im.AddClass("Kernel", "Boolean", "Object")
	im.AddClass("Collections", "Collection", "Object")
	im.AddClass("Collections", "Bag", "Collection")
	im.AddClass("Collections", "OrderedCollection", "Collection")
	im.AddClass("Collections", "Set", "Collection")
	im.AddClass("Graphics", "Point", "Object")
	im.AddClass("", "Orphan", "Object")

	methods := []struct{ class, source, category string }{
		{"Object", "printString\n\t^self class name", "printing"},
		{"Object", "yourself\n\t^self", "accessing"},
		{"Boolean", "not\n\t^self subclassResponsibility", "logical"},
		{"Collection", "isEmpty\n\t^self size = 0", "testing"},
		{"Collection", "addAll: aCollection\n\taCollection do: [:each | self add: each].\n\t^aCollection", "adding"},
		{"Bag", "add: anObject\n\t^self add: anObject withOccurrences: 1", "adding"},
		{"Bag", "size\n\t^contents size", "accessing"},
		{"OrderedCollection", "add: anObject\n\t^self addLast: anObject", "adding"},
		{"OrderedCollection", "at: index put: anObject\n\t^array at: index put: anObject", "accessing"},
		{"Set", "add: newObject\n\t^self add: newObject ifAbsent: [newObject]", "adding"},
		{"Point", "x\n\t^x", "accessing"},
		{"Point", "+ aPoint\n\t^Point x: x + aPoint x y: y + aPoint y", "arithmetic"},
		{"Point", "printOn: aStream\n\taStream nextPutAll: 'Point'", "printing"},
		{"Orphan", "lonely\n\t^'alone'", "accessing"},
	}
	for _, m := range methods {
		im.AddMethod(m.class, "", m.source, m.category)
	}

	im.mu.Lock()
	im.classes["Collection"].Comment = "I am the abstract superclass of all collections."
	im.classes["Bag"].ivars = []string{"contents"}
	im.classes["OrderedCollection"].ivars = []string{"array", "firstIndex", "lastIndex"}
	im.classes["Point"].ivars = []string{"x", "y"}
	im.mu.Unlock()

	return im
}
