package model

// TomatoClasses is the output order of the trained classifier.
var TomatoClasses = []string{
	"Tomato Bacterial Spot",
	"Tomato  Early blight",
	"Tomato Healthy",
	"Tomato Late Blight",
	"Tomato Leaf Mold",
	"Tomato Septoria leaf Spot",
	"Tomato Spider Mites",
	"Tomato Target Spot",
	"Tomato Mosaic Virus",
	"Tomato_Yellow_Leaf_Curl_Virus",
	"Tomato___healthy",
}

// Label maps a class index into classes. Indices outside the list, including
// the -1 produced by an empty output, report false.
func Label(classes []string, index int) (string, bool) {
	if index < 0 || index >= len(classes) {
		return "", false
	}
	return classes[index], true
}
