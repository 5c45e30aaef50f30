package http

import (
	"strings"

	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

// The editor examples offered when a field is left blank

const defaultMarkup = `<!DOCTYPE html>
<html>
<head>
    <title>My Test Page</title>
</head>
<body>
    <h1>Welcome to Code Tester</h1>
    <p>Edit the code and click "Run Code" to see changes.</p>
    <div id="demo">Try adding some CSS and JavaScript!</div>
    <button onclick="showAlert()">Click Me</button>
</body>
</html>`

const defaultStyle = `body {
    font-family: Arial, sans-serif;
    padding: 20px;
    background-color: #f5f7fa;
}

h1 {
    color: #4a6bff;
    text-align: center;
}

p {
    color: #333;
    line-height: 1.6;
}

#demo {
    background-color: white;
    padding: 15px;
    border-radius: 8px;
    margin: 20px 0;
    box-shadow: 0 2px 5px rgba(0,0,0,0.1);
}

button {
    background-color: #4a6bff;
    color: white;
    border: none;
    padding: 10px 20px;
    border-radius: 4px;
    cursor: pointer;
    font-size: 16px;
}

button:hover {
    background-color: #3a56cc;
}`

const defaultScript = `function showAlert() {
    document.getElementById('demo').innerHTML = 
        '<h3>JavaScript is working!</h3>' +
        '<p>You successfully executed JavaScript code.</p>' +
        '<p>Current time: ' + new Date().toLocaleTimeString() + '</p>';
    
    // Also show alert
    alert('Hello from JavaScript!');
}

// Call function on page load
window.onload = function() {
    console.log('Code tester initialized');
};`

// DefaultBundle returns the editor examples
func DefaultBundle() sandbox.SourceBundle {
	return sandbox.SourceBundle{
		Markup: defaultMarkup,
		Style:  defaultStyle,
		Script: defaultScript,
	}
}

// withDefaults fills every blank field of b with its example
func withDefaults(b sandbox.SourceBundle) sandbox.SourceBundle {
	if strings.TrimSpace(b.Markup) == "" {
		b.Markup = defaultMarkup
	}
	if strings.TrimSpace(b.Style) == "" {
		b.Style = defaultStyle
	}
	if strings.TrimSpace(b.Script) == "" {
		b.Script = defaultScript
	}
	return b
}
