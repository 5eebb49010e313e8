// Comando lentefiscal: worker del pipeline de notas, portal manual y tareas de operación.
package main

func main() {
	Execute()
}
